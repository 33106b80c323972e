package task

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/config"
	"github.com/zemyth-app/raise/internal/ledger"
	"github.com/zemyth-app/raise/internal/logger"
	"github.com/zemyth-app/raise/internal/logic"
	"github.com/zemyth-app/raise/internal/pda"
	"gorm.io/gorm"
)

// ReconcileJob 快照对账。事件流可能因节点抖动漏扫，
// 定期把活跃项目的快照与链上账户拉平
type ReconcileJob struct {
	reader          ledger.Reader
	programID       common.Address
	projectLogic    *logic.ProjectLogic
	milestoneLogic  *logic.MilestoneLogic
	investmentLogic *logic.InvestmentLogic
	config          *config.Config
}

// NewReconcileJob 创建快照对账任务
func NewReconcileJob(db *gorm.DB, reader ledger.Reader, programID common.Address, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		reader:          reader,
		programID:       programID,
		projectLogic:    logic.NewProjectLogic(db),
		milestoneLogic:  logic.NewMilestoneLogic(db),
		investmentLogic: logic.NewInvestmentLogic(db),
		config:          cfg,
	}
}

// GetName 获取任务名称
func (j *ReconcileJob) GetName() string {
	return "snapshot_reconcile"
}

// GetSchedule 获取调度配置
func (j *ReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.ReconcileInterval) * time.Second)
}

// Execute 执行对账。只对账非终态项目，终态项目账户不再变化
func (j *ReconcileJob) Execute() {
	logger.Info("Starting snapshot reconcile")

	projects, err := j.projectLogic.GetProjectsByState(
		account.ProjectOpen.String(),
		account.ProjectFunded.String(),
		account.ProjectInProgress.String(),
	)
	if err != nil {
		logger.Error("Failed to fetch active projects: %v", err)
		return
	}

	reconciled := 0
	for _, snapshot := range projects {
		if err := j.reconcileProject(snapshot.ProjectId); err != nil {
			logger.Error("Failed to reconcile project %d: %v", snapshot.ProjectId, err)
			continue
		}
		reconciled++
	}

	logger.Info("Snapshot reconcile completed, refreshed %d projects", reconciled)
}

// reconcileProject 拉平单个项目及其全部里程碑
func (j *ReconcileJob) reconcileProject(projectId int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	projAddr := pda.ProjectAddress(j.programID, uint64(projectId))
	rec, err := j.reader.Read(ctx, projAddr)
	if err != nil {
		return err
	}
	proj, ok := rec.(*account.Project)
	if !ok {
		return errors.New("account is not a project")
	}
	if err := j.projectLogic.UpsertSnapshot(projAddr.Hex(), proj); err != nil {
		return err
	}

	for i := uint8(0); i < proj.MilestoneCount; i++ {
		msAddr := pda.MilestoneAddress(j.programID, projAddr, i)
		msRec, err := j.reader.Read(ctx, msAddr)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				continue
			}
			return err
		}
		ms, ok := msRec.(*account.Milestone)
		if !ok {
			continue
		}
		if err := j.milestoneLogic.UpsertSnapshot(projectId, ms); err != nil {
			return err
		}
	}

	// 前缀扫描补齐漏扫的投资账户。投资账户编码以项目地址开头，
	// tag+项目地址即可圈出项目名下全部投资
	prefix := append([]byte{account.TagInvestment}, projAddr.Bytes()...)
	entries, err := j.reader.ReadAllMatching(ctx, prefix)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		inv, ok := entry.Record.(*account.Investment)
		if !ok {
			continue
		}
		if err := j.investmentLogic.UpsertSnapshot(projectId, inv, ""); err != nil {
			return err
		}
	}
	return nil
}
