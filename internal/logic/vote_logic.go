package logic

import (
	"fmt"

	"github.com/zemyth-app/raise/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteLogic 投票记录业务逻辑
type VoteLogic struct {
	db *gorm.DB
}

// NewVoteLogic 创建投票记录业务逻辑
func NewVoteLogic(db *gorm.DB) *VoteLogic {
	return &VoteLogic{db: db}
}

// RecordVote 写入投票记录。同轮重复事件幂等覆盖
func (v *VoteLogic) RecordVote(record *model.VoteRecordModel) error {
	if err := v.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "project_id"}, {Name: "milestone_index"},
			{Name: "voting_round"}, {Name: "voter"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"choice", "weight", "tx_hash", "block_num", "updated_at",
		}),
	}).Create(record).Error; err != nil {
		return fmt.Errorf("写入投票记录失败: %w", err)
	}
	return nil
}

// GetVotes 获取某里程碑某轮的投票记录
func (v *VoteLogic) GetVotes(projectId int64, milestoneIndex, votingRound int) ([]model.VoteRecordModel, error) {
	var votes []model.VoteRecordModel
	if err := v.db.Where("project_id = ? AND milestone_index = ? AND voting_round = ?",
		projectId, milestoneIndex, votingRound).
		Order("block_num ASC").
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("获取投票记录失败: %w", err)
	}
	return votes, nil
}

// GetVoterHistory 获取投票人在项目内的全部投票
func (v *VoteLogic) GetVoterHistory(projectId int64, voter string) ([]model.VoteRecordModel, error) {
	var votes []model.VoteRecordModel
	if err := v.db.Where("project_id = ? AND voter = ?", projectId, voter).
		Order("milestone_index ASC, voting_round ASC").
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("获取投票历史失败: %w", err)
	}
	return votes, nil
}
