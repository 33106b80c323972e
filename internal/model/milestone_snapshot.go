package model

import (
	"time"
)

// MilestoneSnapshotModel 里程碑账户快照，(project_id, milestone_index) 唯一
type MilestoneSnapshotModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId      int64 `json:"project_id" gorm:"not null;uniqueIndex:idx_milestone_project_index"`
	MilestoneIndex int   `json:"milestone_index" gorm:"uniqueIndex:idx_milestone_project_index"`

	Percentage int    `json:"percentage" gorm:"not null"` // 解锁占比（整数百分比）
	State      string `json:"state" gorm:"not null;index"`

	// 当前轮计票
	YesVotes    string `json:"yes_votes" gorm:"default:'0'"`
	NoVotes     string `json:"no_votes" gorm:"default:'0'"`
	TotalWeight string `json:"total_weight" gorm:"default:'0'"`
	VoterCount  int64  `json:"voter_count" gorm:"default:0"`
	VotingRound int    `json:"voting_round" gorm:"default:0"`

	// 时间信息（unix秒，0表示未设置）
	VotingEndsAt   int64 `json:"voting_ends_at"`
	Deadline       int64 `json:"deadline"`
	SubmittedAt    int64 `json:"submitted_at"`
	ExtensionCount int   `json:"extension_count" gorm:"default:0"`
}

// TableName 自定义表名
func (MilestoneSnapshotModel) TableName() string {
	return "milestone_snapshot"
}
