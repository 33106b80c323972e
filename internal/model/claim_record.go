package model

import (
	"time"
)

// ClaimKind 代币领取类型
type ClaimKind string

const (
	ClaimKindToken    ClaimKind = "token"    // 里程碑解锁后的常规领取
	ClaimKindRecovery ClaimKind = "recovery" // 强制完成后的补领
	ClaimKindVesting  ClaimKind = "vesting"  // 创始人归属领取
)

// ClaimRecordModel 代币领取记录，来自链上事件
type ClaimRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId      int64     `json:"project_id" gorm:"not null;index"`
	Investor       string    `json:"investor" gorm:"index"` // 归属领取时为创始人
	MilestoneIndex int       `json:"milestone_index"`
	Amount         string    `json:"amount" gorm:"not null"`
	Kind           ClaimKind `json:"kind" gorm:"not null"`

	TxHash   string `json:"tx_hash" gorm:"not null;uniqueIndex:idx_claim_tx_log"`
	LogIndex int64  `json:"log_index" gorm:"uniqueIndex:idx_claim_tx_log"`
	BlockNum int64  `json:"block_num"`
}

// TableName 自定义表名
func (ClaimRecordModel) TableName() string {
	return "claim_record"
}
