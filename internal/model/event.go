package model

import (
	"time"
)

// EventModel 链上事件记录。(tx_hash, log_index) 唯一，重放扫描天然幂等
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64  `json:"project_id" gorm:"index"`
	EventType string `json:"event_type" gorm:"not null;index"`
	TxHash    string `json:"tx_hash" gorm:"not null;uniqueIndex:idx_event_tx_log"`
	BlockNum  int64  `json:"block_num" gorm:"index"`
	LogIndex  int64  `json:"log_index" gorm:"uniqueIndex:idx_event_tx_log"`
	Data      string `json:"data" gorm:"type:text"` // 解码后字段的JSON快照
	Processed bool   `json:"processed" gorm:"default:false;index"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
