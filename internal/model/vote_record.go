package model

import (
	"time"
)

// VoteRecordModel 投票记录。同一里程碑同一轮每个投票人最多一条
type VoteRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId      int64  `json:"project_id" gorm:"not null;uniqueIndex:idx_vote_scope"`
	MilestoneIndex int    `json:"milestone_index" gorm:"uniqueIndex:idx_vote_scope"`
	VotingRound    int    `json:"voting_round" gorm:"uniqueIndex:idx_vote_scope"`
	Voter          string `json:"voter" gorm:"not null;uniqueIndex:idx_vote_scope"`

	Choice string `json:"choice" gorm:"not null"` // good / bad
	Weight string `json:"weight" gorm:"not null"`

	TxHash   string `json:"tx_hash"`
	BlockNum int64  `json:"block_num"`
}

// TableName 自定义表名
func (VoteRecordModel) TableName() string {
	return "vote_record"
}
