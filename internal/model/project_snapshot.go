package model

import (
	"time"
)

// ProjectSnapshotModel 链上项目账户的数据库快照。
// 链上状态是唯一事实来源，快照只服务查询接口与巡检任务；
// 金额字段存十进制字符串，避免大整数精度丢失
type ProjectSnapshotModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64  `json:"project_id" gorm:"not null;uniqueIndex"`
	Addr      string `json:"addr" gorm:"not null"` // 项目账户地址
	Founder   string `json:"founder" gorm:"not null;index"`

	// 募资信息
	FundingGoal   string `json:"funding_goal" gorm:"not null"`
	AmountRaised  string `json:"amount_raised" gorm:"default:'0'"`
	InvestorCount int64  `json:"investor_count" gorm:"default:0"`

	// 里程碑进度
	MilestoneCount      int    `json:"milestone_count"`
	CurrentMilestone    int    `json:"current_milestone"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	PivotCount          int    `json:"pivot_count"`
	HasActivePivot      bool   `json:"has_active_pivot"`

	// 时间信息（unix秒，0表示未发生）
	FundedAt      int64 `json:"funded_at"`
	ExitWindowEnd int64 `json:"exit_window_end"`

	// 状态
	State string `json:"state" gorm:"not null;index"`

	MetadataURI string `json:"metadata_uri"`
}

// TableName 自定义表名
func (ProjectSnapshotModel) TableName() string {
	return "project_snapshot"
}
