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

// AbandonmentSweepJob 废弃巡检。从快照筛出疑似怠工的执行中项目，
// 逐个尝试链上标记废弃。快照只用来缩小候选集，
// 真正的废弃判定由动作编排层重新拉链上账户完成
type AbandonmentSweepJob struct {
	projectLogic   *logic.ProjectLogic
	milestoneLogic *logic.MilestoneLogic
	actionLogic    *logic.ActionLogic
	submitter      common.Address
	config         *config.Config
}

// NewAbandonmentSweepJob 创建废弃巡检任务
func NewAbandonmentSweepJob(db *gorm.DB, actionLogic *logic.ActionLogic, submitter common.Address, cfg *config.Config) *AbandonmentSweepJob {
	return &AbandonmentSweepJob{
		projectLogic:   logic.NewProjectLogic(db),
		milestoneLogic: logic.NewMilestoneLogic(db),
		actionLogic:    actionLogic,
		submitter:      submitter,
		config:         cfg,
	}
}

// GetName 获取任务名称
func (j *AbandonmentSweepJob) GetName() string {
	return "abandonment_sweep"
}

// GetSchedule 获取调度配置
func (j *AbandonmentSweepJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.SweepInterval) * time.Second)
}

// Execute 执行巡检
func (j *AbandonmentSweepJob) Execute() {
	logger.Info("Starting abandonment sweep")

	projects, err := j.projectLogic.GetProjectsByState(account.ProjectInProgress.String())
	if err != nil {
		logger.Error("Failed to fetch in-progress projects: %v", err)
		return
	}

	params := j.config.Protocol.Params()
	now := time.Now()
	marked := 0

	for _, project := range projects {
		ms, err := j.milestoneLogic.GetMilestone(project.ProjectId, project.CurrentMilestone)
		if err != nil {
			logger.Error("Failed to fetch milestone for project %d: %v", project.ProjectId, err)
			continue
		}
		// 截止加怠工超时之前不可能废弃，跳过省一次链上往返
		if ms.Deadline == 0 || ms.SubmittedAt > 0 {
			continue
		}
		cutoff := time.Unix(ms.Deadline, 0).Add(params.InactivityTimeout)
		if now.Before(cutoff) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		txHash, err := j.actionLogic.MarkAbandoned(ctx, uint64(project.ProjectId), j.submitter)
		cancel()
		if err != nil {
			// 链上账户比快照新（如创始人刚提交）属于正常竞态
			var perr *protoerr.Error
			if errors.As(err, &perr) {
				logger.Debug("Project %d not abandonable on chain: %v", project.ProjectId, err)
			} else {
				logger.Error("Failed to mark project %d abandoned: %v", project.ProjectId, err)
			}
			continue
		}
		logger.Info("Marked project %d abandoned, tx %s", project.ProjectId, txHash.Hex())
		marked++
	}

	logger.Info("Abandonment sweep completed, marked %d projects", marked)
}
