package logic

import (
	"errors"
	"fmt"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MilestoneLogic 里程碑快照业务逻辑
type MilestoneLogic struct {
	db *gorm.DB
}

// NewMilestoneLogic 创建里程碑快照业务逻辑
func NewMilestoneLogic(db *gorm.DB) *MilestoneLogic {
	return &MilestoneLogic{db: db}
}

// UpsertSnapshot 以链上账户为准写入里程碑快照
func (m *MilestoneLogic) UpsertSnapshot(projectId int64, ms *account.Milestone) error {
	snapshot := model.MilestoneSnapshotModel{
		ProjectId:      projectId,
		MilestoneIndex: int(ms.Index),
		Percentage:     int(ms.Percentage),
		State:          ms.State.String(),
		YesVotes:       amountString(ms.YesVotes),
		NoVotes:        amountString(ms.NoVotes),
		TotalWeight:    amountString(ms.TotalWeight),
		VoterCount:     int64(ms.VoterCount),
		VotingRound:    int(ms.VotingRound),
		VotingEndsAt:   ms.VotingEndsAt,
		Deadline:       ms.Deadline,
		SubmittedAt:    ms.SubmittedAt,
		ExtensionCount: int(ms.ExtensionCount),
	}

	if err := m.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}, {Name: "milestone_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"percentage", "state", "yes_votes", "no_votes", "total_weight",
			"voter_count", "voting_round", "voting_ends_at", "deadline",
			"submitted_at", "extension_count", "updated_at",
		}),
	}).Create(&snapshot).Error; err != nil {
		return fmt.Errorf("写入里程碑快照失败: %w", err)
	}
	return nil
}

// GetMilestones 获取项目的全部里程碑快照
func (m *MilestoneLogic) GetMilestones(projectId int64) ([]model.MilestoneSnapshotModel, error) {
	var milestones []model.MilestoneSnapshotModel
	if err := m.db.Where("project_id = ?", projectId).
		Order("milestone_index ASC").
		Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("获取里程碑列表失败: %w", err)
	}
	return milestones, nil
}

// GetMilestone 获取单个里程碑快照
func (m *MilestoneLogic) GetMilestone(projectId int64, index int) (*model.MilestoneSnapshotModel, error) {
	var milestone model.MilestoneSnapshotModel
	if err := m.db.Where("project_id = ? AND milestone_index = ?", projectId, index).
		First(&milestone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("里程碑不存在")
		}
		return nil, fmt.Errorf("获取里程碑失败: %w", err)
	}
	return &milestone, nil
}

// GetMilestonesInState 按状态获取里程碑快照，巡检任务使用
func (m *MilestoneLogic) GetMilestonesInState(states ...string) ([]model.MilestoneSnapshotModel, error) {
	var milestones []model.MilestoneSnapshotModel
	if err := m.db.Where("state IN ?", states).Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("按状态获取里程碑失败: %w", err)
	}
	return milestones, nil
}
