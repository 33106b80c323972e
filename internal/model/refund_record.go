package model

import (
	"time"
)

// RefundKind 资金返还类型
type RefundKind string

const (
	RefundKindAbandonment RefundKind = "abandonment" // 项目废弃按比例退款
	RefundKindExit        RefundKind = "exit"        // 连续失败后的退出窗口
	RefundKindPivot       RefundKind = "pivot"       // 转向窗口内撤资
)

// RefundRecordModel 资金返还记录，来自链上事件
type RefundRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64      `json:"project_id" gorm:"not null;index"`
	Investor  string     `json:"investor" gorm:"not null;index"`
	Amount    string     `json:"amount" gorm:"not null"`
	Kind      RefundKind `json:"kind" gorm:"not null"`

	TxHash   string `json:"tx_hash" gorm:"not null;uniqueIndex:idx_refund_tx_log"`
	LogIndex int64  `json:"log_index" gorm:"uniqueIndex:idx_refund_tx_log"`
	BlockNum int64  `json:"block_num"`
}

// TableName 自定义表名
func (RefundRecordModel) TableName() string {
	return "refund_record"
}
