package logic

import (
	"fmt"

	"github.com/zemyth-app/raise/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefundLogic 退款与领取记录业务逻辑
type RefundLogic struct {
	db *gorm.DB
}

// NewRefundLogic 创建退款与领取记录业务逻辑
func NewRefundLogic(db *gorm.DB) *RefundLogic {
	return &RefundLogic{db: db}
}

// RecordRefund 写入退款记录，(tx_hash, log_index) 冲突时忽略
func (r *RefundLogic) RecordRefund(record *model.RefundRecordModel) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
		DoNothing: true,
	}).Create(record).Error; err != nil {
		return fmt.Errorf("写入退款记录失败: %w", err)
	}
	return nil
}

// RecordClaim 写入领取记录，(tx_hash, log_index) 冲突时忽略
func (r *RefundLogic) RecordClaim(record *model.ClaimRecordModel) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
		DoNothing: true,
	}).Create(record).Error; err != nil {
		return fmt.Errorf("写入领取记录失败: %w", err)
	}
	return nil
}

// GetRefunds 获取项目的退款记录
func (r *RefundLogic) GetRefunds(projectId int64, page, pageSize int) ([]model.RefundRecordModel, int64, error) {
	var refunds []model.RefundRecordModel
	var total int64

	query := r.db.Model(&model.RefundRecordModel{}).Where("project_id = ?", projectId)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取退款总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).
		Order("block_num DESC").
		Find(&refunds).Error; err != nil {
		return nil, 0, fmt.Errorf("获取退款列表失败: %w", err)
	}

	return refunds, total, nil
}

// GetClaims 获取项目的领取记录
func (r *RefundLogic) GetClaims(projectId int64, kind model.ClaimKind, page, pageSize int) ([]model.ClaimRecordModel, int64, error) {
	var claims []model.ClaimRecordModel
	var total int64

	query := r.db.Model(&model.ClaimRecordModel{}).Where("project_id = ?", projectId)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取领取总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).
		Order("block_num DESC").
		Find(&claims).Error; err != nil {
		return nil, 0, fmt.Errorf("获取领取列表失败: %w", err)
	}

	return claims, total, nil
}
