package logic

import (
	"errors"
	"fmt"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvestmentLogic 投资快照业务逻辑
type InvestmentLogic struct {
	db *gorm.DB
}

// NewInvestmentLogic 创建投资快照业务逻辑
func NewInvestmentLogic(db *gorm.DB) *InvestmentLogic {
	return &InvestmentLogic{db: db}
}

// UpsertSnapshot 以链上账户为准写入投资快照
func (i *InvestmentLogic) UpsertSnapshot(projectId int64, inv *account.Investment, txHash string) error {
	snapshot := model.InvestmentSnapshotModel{
		ProjectId:       projectId,
		Investor:        inv.Investor.Hex(),
		Mint:            inv.Mint.Hex(),
		Amount:          amountString(inv.Amount),
		VoteWeight:      amountString(inv.VoteWeight),
		TokenAllocation: amountString(inv.TokenAllocation),
		TierIndex:       int(inv.TierIndex),
		Claimed:         inv.Claimed,
		Withdrawn:       inv.Withdrawn,
		Refunded:        inv.Refunded,
		TxHash:          txHash,
	}

	if err := i.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}, {Name: "mint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"investor", "amount", "vote_weight", "token_allocation", "tier_index",
			"claimed", "withdrawn", "refunded", "updated_at",
		}),
	}).Create(&snapshot).Error; err != nil {
		return fmt.Errorf("写入投资快照失败: %w", err)
	}
	return nil
}

// MarkClaimed 标记投资已领取代币。投资以（项目，铸造标识）为键，
// 只能标记单个铸造标识对应的那条投资
func (i *InvestmentLogic) MarkClaimed(projectId int64, mint string) error {
	return i.markFlag(projectId, mint, "claimed")
}

// MarkWithdrawn 标记投资已在转向窗口撤资
func (i *InvestmentLogic) MarkWithdrawn(projectId int64, mint string) error {
	return i.markFlag(projectId, mint, "withdrawn")
}

// MarkRefunded 标记投资已退款
func (i *InvestmentLogic) MarkRefunded(projectId int64, mint string) error {
	return i.markFlag(projectId, mint, "refunded")
}

func (i *InvestmentLogic) markFlag(projectId int64, mint, column string) error {
	result := i.db.Model(&model.InvestmentSnapshotModel{}).
		Where("project_id = ? AND mint = ?", projectId, mint).
		Update(column, true)
	if result.Error != nil {
		return fmt.Errorf("更新投资标记失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("投资记录不存在")
	}
	return nil
}

// GetInvestments 获取项目的投资快照列表
func (i *InvestmentLogic) GetInvestments(projectId int64, page, pageSize int) ([]model.InvestmentSnapshotModel, int64, error) {
	var investments []model.InvestmentSnapshotModel
	var total int64

	query := i.db.Model(&model.InvestmentSnapshotModel{}).Where("project_id = ?", projectId)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取投资总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).
		Order("created_at ASC").
		Find(&investments).Error; err != nil {
		return nil, 0, fmt.Errorf("获取投资列表失败: %w", err)
	}

	return investments, total, nil
}

// GetInvestorInvestments 获取投资人在项目内的全部投资快照。
// 同一投资人可持有多个铸造标识，返回列表而非单条
func (i *InvestmentLogic) GetInvestorInvestments(projectId int64, investor string) ([]model.InvestmentSnapshotModel, error) {
	var investments []model.InvestmentSnapshotModel
	if err := i.db.Where("project_id = ? AND investor = ?", projectId, investor).
		Order("created_at ASC").
		Find(&investments).Error; err != nil {
		return nil, fmt.Errorf("获取投资记录失败: %w", err)
	}
	return investments, nil
}

// GetInvestorProjects 获取投资人参与的全部项目ID
func (i *InvestmentLogic) GetInvestorProjects(investor string) ([]int64, error) {
	var projectIds []int64
	if err := i.db.Model(&model.InvestmentSnapshotModel{}).
		Where("investor = ?", investor).
		Pluck("project_id", &projectIds).Error; err != nil {
		return nil, fmt.Errorf("获取投资人项目失败: %w", err)
	}
	return projectIds, nil
}

// CountUnclaimed 统计项目内未领取的投资数，配给停滞巡检使用
func (i *InvestmentLogic) CountUnclaimed(projectId int64) (int64, error) {
	var count int64
	err := i.db.Model(&model.InvestmentSnapshotModel{}).
		Where("project_id = ? AND claimed = ? AND withdrawn = ? AND refunded = ?",
			projectId, false, false, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计未领取投资失败: %w", err)
	}
	return count, nil
}
