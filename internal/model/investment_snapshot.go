package model

import (
	"time"
)

// InvestmentSnapshotModel 投资账户快照。链上投资账户以（项目，铸造标识）
// 为键，同一投资人可经由不同铸造标识多次投资，故唯一键必须含mint
type InvestmentSnapshotModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64  `json:"project_id" gorm:"not null;uniqueIndex:idx_investment_project_mint"`
	Investor  string `json:"investor" gorm:"not null;index"`
	Mint      string `json:"mint" gorm:"not null;uniqueIndex:idx_investment_project_mint"`

	Amount          string `json:"amount" gorm:"not null"`
	VoteWeight      string `json:"vote_weight" gorm:"default:'0'"`
	TokenAllocation string `json:"token_allocation" gorm:"default:'0'"`
	TierIndex       int    `json:"tier_index"`

	// 终态标记，互斥
	Claimed   bool `json:"claimed" gorm:"default:false"`
	Withdrawn bool `json:"withdrawn" gorm:"default:false"`
	Refunded  bool `json:"refunded" gorm:"default:false"`

	TxHash string `json:"tx_hash"`
}

// TableName 自定义表名
func (InvestmentSnapshotModel) TableName() string {
	return "investment_snapshot"
}
