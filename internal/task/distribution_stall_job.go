package task

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/config"
	"github.com/zemyth-app/raise/internal/logger"
	"github.com/zemyth-app/raise/internal/logic"
	"github.com/zemyth-app/raise/internal/protoerr"
	"gorm.io/gorm"
)

// DistributionStallJob 配给停滞巡检。筛出通过后长时间未解锁
// 且仍有未领取投资的里程碑，尝试触发管理员熔断。
// 停滞阈值的最终判定在链上，快照只做预筛
type DistributionStallJob struct {
	milestoneLogic  *logic.MilestoneLogic
	investmentLogic *logic.InvestmentLogic
	actionLogic     *logic.ActionLogic
	submitter       common.Address
	config          *config.Config
}

// NewDistributionStallJob 创建配给停滞巡检任务
func NewDistributionStallJob(db *gorm.DB, actionLogic *logic.ActionLogic, submitter common.Address, cfg *config.Config) *DistributionStallJob {
	return &DistributionStallJob{
		milestoneLogic:  logic.NewMilestoneLogic(db),
		investmentLogic: logic.NewInvestmentLogic(db),
		actionLogic:     actionLogic,
		submitter:       submitter,
		config:          cfg,
	}
}

// GetName 获取任务名称
func (j *DistributionStallJob) GetName() string {
	return "distribution_stall_sweep"
}

// GetSchedule 获取调度配置
func (j *DistributionStallJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.SweepInterval) * time.Second)
}

// Execute 执行巡检
func (j *DistributionStallJob) Execute() {
	logger.Info("Starting distribution stall sweep")

	milestones, err := j.milestoneLogic.GetMilestonesInState(
		account.MilestonePassed.String(), account.MilestoneUnlocked.String())
	if err != nil {
		logger.Error("Failed to fetch passed milestones: %v", err)
		return
	}

	forced := 0
	for _, ms := range milestones {
		unclaimed, err := j.investmentLogic.CountUnclaimed(ms.ProjectId)
		if err != nil {
			logger.Error("Failed to count unclaimed investments for project %d: %v", ms.ProjectId, err)
			continue
		}
		if unclaimed == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		txHash, err := j.actionLogic.ForceComplete(ctx, uint64(ms.ProjectId), uint8(ms.MilestoneIndex), j.submitter)
		cancel()
		if err != nil {
			// 未达停滞阈值或配给已完成属于正常情况
			var perr *protoerr.Error
			if errors.As(err, &perr) {
				logger.Debug("Distribution %d/%d not force-completable: %v",
					ms.ProjectId, ms.MilestoneIndex, err)
			} else {
				logger.Error("Failed to force-complete distribution %d/%d: %v",
					ms.ProjectId, ms.MilestoneIndex, err)
			}
			continue
		}
		logger.Info("Force-completed distribution %d/%d, tx %s",
			ms.ProjectId, ms.MilestoneIndex, txHash.Hex())
		forced++
	}

	logger.Info("Distribution stall sweep completed, forced %d distributions", forced)
}
