package logic

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectLogic 项目快照业务逻辑
type ProjectLogic struct {
	db *gorm.DB
}

// NewProjectLogic 创建项目快照业务逻辑
func NewProjectLogic(db *gorm.DB) *ProjectLogic {
	return &ProjectLogic{db: db}
}

// UpsertSnapshot 以链上账户为准写入项目快照
func (p *ProjectLogic) UpsertSnapshot(addr string, proj *account.Project) error {
	snapshot := model.ProjectSnapshotModel{
		ProjectId:           int64(proj.ID),
		Addr:                addr,
		Founder:             proj.Founder.Hex(),
		FundingGoal:         amountString(proj.FundingGoal),
		AmountRaised:        amountString(proj.AmountRaised),
		InvestorCount:       int64(proj.InvestorCount),
		MilestoneCount:      int(proj.MilestoneCount),
		CurrentMilestone:    int(proj.CurrentMilestone),
		ConsecutiveFailures: int(proj.ConsecutiveFailures),
		PivotCount:          int(proj.PivotCount),
		HasActivePivot:      proj.HasActivePivot,
		FundedAt:            proj.FundedAt,
		ExitWindowEnd:       proj.ExitWindowEnd,
		State:               proj.State.String(),
		MetadataURI:         proj.MetadataURI,
	}

	if err := p.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"addr", "founder", "funding_goal", "amount_raised", "investor_count",
			"milestone_count", "current_milestone", "consecutive_failures",
			"pivot_count", "has_active_pivot", "funded_at", "exit_window_end",
			"state", "metadata_uri", "updated_at",
		}),
	}).Create(&snapshot).Error; err != nil {
		return fmt.Errorf("写入项目快照失败: %w", err)
	}
	return nil
}

// GetProjects 获取项目快照列表
func (p *ProjectLogic) GetProjects(state, founder string, page, pageSize int) ([]model.ProjectSnapshotModel, int64, error) {
	var projects []model.ProjectSnapshotModel
	var total int64

	query := p.db.Model(&model.ProjectSnapshotModel{})
	if state != "" {
		query = query.Where("state = ?", state)
	}
	if founder != "" {
		query = query.Where("founder = ?", founder)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).
		Order("project_id DESC").
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return projects, total, nil
}

// GetProject 获取项目快照
func (p *ProjectLogic) GetProject(projectId int64) (*model.ProjectSnapshotModel, error) {
	var project model.ProjectSnapshotModel
	if err := p.db.Where("project_id = ?", projectId).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("项目不存在")
		}
		return nil, fmt.Errorf("获取项目详情失败: %w", err)
	}
	return &project, nil
}

// GetProjectsByState 按状态获取全部项目快照，巡检任务使用
func (p *ProjectLogic) GetProjectsByState(states ...string) ([]model.ProjectSnapshotModel, error) {
	var projects []model.ProjectSnapshotModel
	if err := p.db.Where("state IN ?", states).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("按状态获取项目失败: %w", err)
	}
	return projects, nil
}

// GetProjectStats 获取项目统计信息
func (p *ProjectLogic) GetProjectStats(projectId int64) (map[string]interface{}, error) {
	project, err := p.GetProject(projectId)
	if err != nil {
		return nil, err
	}

	var investorCount, voteCount int64
	p.db.Model(&model.InvestmentSnapshotModel{}).
		Where("project_id = ?", projectId).Count(&investorCount)
	p.db.Model(&model.VoteRecordModel{}).
		Where("project_id = ?", projectId).Count(&voteCount)

	// 完成百分比按大整数比例折算
	completion := float64(0)
	goal, okGoal := new(big.Int).SetString(project.FundingGoal, 10)
	raised, okRaised := new(big.Int).SetString(project.AmountRaised, 10)
	if okGoal && okRaised && goal.Sign() > 0 {
		bps := new(big.Int).Mul(raised, big.NewInt(10000))
		bps.Quo(bps, goal)
		completion = float64(bps.Int64()) / 100
	}

	return map[string]interface{}{
		"project_id":            project.ProjectId,
		"state":                 project.State,
		"funding_goal":          project.FundingGoal,
		"amount_raised":         project.AmountRaised,
		"completion_percentage": completion,
		"investor_count":        investorCount,
		"vote_count":            voteCount,
		"milestone_count":       project.MilestoneCount,
		"current_milestone":     project.CurrentMilestone,
		"consecutive_failures":  project.ConsecutiveFailures,
	}, nil
}

// amountString 大整数转十进制字符串，nil视为0
func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
