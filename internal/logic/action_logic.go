package logic

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/instruction"
	"github.com/zemyth-app/raise/internal/ledger"
	"github.com/zemyth-app/raise/internal/lifecycle"
	"github.com/zemyth-app/raise/internal/pda"
)

// ActionLogic 链上动作编排。每个动作重新拉取涉及的账户，
// 在本地跑一遍与链上程序一致的校验，通过后才组装指令提交。
// 本地校验只为尽早失败省手续费，最终裁决永远在链上
type ActionLogic struct {
	reader    ledger.Reader
	writer    ledger.Writer
	composer  *instruction.Composer
	programID common.Address
	params    lifecycle.Params
	clock     lifecycle.Clock
}

// NewActionLogic 创建链上动作编排
func NewActionLogic(reader ledger.Reader, writer ledger.Writer, programID common.Address,
	params lifecycle.Params, clock lifecycle.Clock) *ActionLogic {
	return &ActionLogic{
		reader:    reader,
		writer:    writer,
		composer:  instruction.NewComposer(programID),
		programID: programID,
		params:    params,
		clock:     clock,
	}
}

// CreateProject 创建项目。结构校验在组装期完成
func (a *ActionLogic) CreateProject(ctx context.Context, p instruction.CreateProjectParams) (common.Hash, error) {
	composed, err := a.composer.CreateProject(p)
	if err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, composed)
}

// SubmitForApproval 提交项目审核
func (a *ActionLogic) SubmitForApproval(ctx context.Context, projectID uint64, founder common.Address) (common.Hash, error) {
	proj, _, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidateProjectTransition(proj.State, account.ProjectPendingApproval); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.SubmitForApproval(projectID, founder))
}

// ApproveProject 审核通过项目，开放认购
func (a *ActionLogic) ApproveProject(ctx context.Context, projectID uint64, admin common.Address) (common.Hash, error) {
	proj, _, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidateProjectTransition(proj.State, account.ProjectOpen); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ApproveProject(projectID, admin))
}

// Invest 投资项目。本地预演档位匹配与超募校验
func (a *ActionLogic) Invest(ctx context.Context, projectID uint64, investor, mint common.Address, amount *big.Int) (common.Hash, error) {
	proj, _, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := lifecycle.ApplyInvestment(proj, amount, a.clock.Now()); err != nil {
		return common.Hash{}, err
	}
	composed, err := a.composer.Invest(projectID, investor, mint, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, composed)
}

// SetDeadline 设置里程碑截止时间
func (a *ActionLogic) SetDeadline(ctx context.Context, projectID uint64, index uint8, deadline time.Time, founder common.Address) (common.Hash, error) {
	ms, err := a.fetchMilestone(ctx, projectID, index)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.SetDeadline(ms, deadline, a.clock.Now(), a.params); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.SetDeadline(projectID, index, deadline.Unix(), founder))
}

// ExtendDeadline 延长里程碑截止时间
func (a *ActionLogic) ExtendDeadline(ctx context.Context, projectID uint64, index uint8, newDeadline time.Time, founder common.Address) (common.Hash, error) {
	ms, err := a.fetchMilestone(ctx, projectID, index)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ExtendDeadline(ms, newDeadline, a.clock.Now(), a.params); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ExtendDeadline(projectID, index, newDeadline.Unix(), founder))
}

// SubmitMilestone 提交里程碑交付物，进入投票期
func (a *ActionLogic) SubmitMilestone(ctx context.Context, projectID uint64, index uint8, founder common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	ms, err := a.fetchMilestoneAt(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.SubmitMilestone(proj, ms, a.clock.Now(), a.params); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.SubmitMilestone(projectID, index, founder))
}

// CastVote 里程碑投票。按当前轮次派生投票账户
func (a *ActionLogic) CastVote(ctx context.Context, projectID uint64, index uint8, choice account.VoteChoice, voter, mint common.Address) (common.Hash, error) {
	_, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	ms, err := a.fetchMilestoneAt(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	inv, err := a.fetchInvestment(ctx, projAddr, mint)
	if err != nil {
		return common.Hash{}, err
	}

	// 已投过票的投票账户存在即为重复投票
	msAddr := pda.MilestoneAddress(a.programID, projAddr, index)
	voteAddr := pda.VoteAddress(a.programID, msAddr, voter, ms.VotingRound)
	existing, err := a.readVote(ctx, voteAddr)
	if err != nil {
		return common.Hash{}, err
	}

	if err := lifecycle.ValidateVote(ms, inv, existing, a.clock.Now()); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.CastVote(projectID, index, ms.VotingRound, choice, voter, mint))
}

// FinalizeVoting 结算投票。任何人可触发
func (a *ActionLogic) FinalizeVoting(ctx context.Context, projectID uint64, index uint8, caller common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	ms, err := a.fetchMilestoneAt(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := lifecycle.FinalizeVoting(proj, ms, a.clock.Now(), a.params); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.FinalizeVoting(projectID, index, caller))
}

// ReworkMilestone 投票未通过后重做，开启新一轮
func (a *ActionLogic) ReworkMilestone(ctx context.Context, projectID uint64, index uint8, founder common.Address) (common.Hash, error) {
	ms, err := a.fetchMilestone(ctx, projectID, index)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ReworkMilestone(ms); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ReworkMilestone(projectID, index, founder))
}

// UnlockMilestone 解锁通过的里程碑，释放对应比例资金
func (a *ActionLogic) UnlockMilestone(ctx context.Context, projectID uint64, index uint8, founder common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	ms, err := a.fetchMilestoneAt(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	var next *account.Milestone
	if uint8(index+1) < proj.MilestoneCount {
		next, err = a.fetchMilestoneAt(ctx, projAddr, index+1)
		if err != nil {
			return common.Hash{}, err
		}
	}
	if err := lifecycle.UnlockMilestone(proj, ms, next); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.UnlockMilestone(projectID, index, proj.MilestoneCount, founder))
}

// ClaimTokens 投资人自助领取已解锁的代币配给
func (a *ActionLogic) ClaimTokens(ctx context.Context, projectID uint64, index uint8, investor, mint common.Address) (common.Hash, error) {
	_, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	ms, err := a.fetchMilestoneAt(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	dist, err := a.fetchDistribution(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	inv, err := a.fetchInvestment(ctx, projAddr, mint)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidateClaim(ms, dist, inv); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ClaimTokens(projectID, index, investor, mint))
}

// RecoveryClaim 强制完成后的补领
func (a *ActionLogic) RecoveryClaim(ctx context.Context, projectID uint64, index uint8, investor, mint common.Address) (common.Hash, error) {
	_, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	dist, err := a.fetchDistribution(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	inv, err := a.fetchInvestment(ctx, projAddr, mint)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidateRecoveryClaim(dist, inv); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.RecoveryClaim(projectID, index, investor, mint))
}

// BatchDistribute 管理员批量推送配给（旧路径，单批上限受限）
func (a *ActionLogic) BatchDistribute(ctx context.Context, projectID uint64, index uint8, mints []common.Address, admin common.Address) (common.Hash, error) {
	_, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	dist, err := a.fetchDistribution(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidateBatchPush(dist, len(mints)); err != nil {
		return common.Hash{}, err
	}
	composed, err := a.composer.BatchDistribute(projectID, index, mints, admin)
	if err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, composed)
}

// ForceComplete 配给停滞后的管理员熔断
func (a *ActionLogic) ForceComplete(ctx context.Context, projectID uint64, index uint8, admin common.Address) (common.Hash, error) {
	_, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	dist, err := a.fetchDistribution(ctx, projAddr, index)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ForceCompleteDistribution(dist, a.clock.Now(), a.params); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ForceComplete(projectID, index, admin))
}

// MarkAbandoned 标记项目废弃。截止加怠工超时后任何人可触发
func (a *ActionLogic) MarkAbandoned(ctx context.Context, projectID uint64, caller common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	current := proj.CurrentMilestone
	ms, err := a.fetchMilestoneAt(ctx, projAddr, current)
	if err != nil {
		return common.Hash{}, err
	}
	abandoned, err := lifecycle.CheckAbandonment(proj, ms, a.clock.Now(), a.params)
	if err != nil {
		return common.Hash{}, err
	}
	if !abandoned {
		return common.Hash{}, errors.New("项目未达到废弃条件")
	}
	return a.writer.Submit(ctx, a.composer.MarkAbandoned(projectID, current, caller))
}

// ClaimRefund 废弃项目的按比例退款
func (a *ActionLogic) ClaimRefund(ctx context.Context, projectID uint64, investor, mint common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	inv, err := a.fetchInvestment(ctx, projAddr, mint)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidateAbandonmentRefund(proj, inv); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ClaimRefund(projectID, proj.MilestoneCount, investor, mint))
}

// ExitClaim 连续失败后退出窗口内的退款
func (a *ActionLogic) ExitClaim(ctx context.Context, projectID uint64, investor, mint common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	inv, err := a.fetchInvestment(ctx, projAddr, mint)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidateExitClaim(proj, inv, a.clock.Now()); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ExitClaim(projectID, proj.MilestoneCount, investor, mint))
}

// ProposePivot 创始人发起转向提案
func (a *ActionLogic) ProposePivot(ctx context.Context, projectID uint64, percentages []uint8, metadataURI string, founder common.Address) (common.Hash, error) {
	proj, _, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := lifecycle.ProposePivot(proj, percentages, metadataURI, a.clock.Now()); err != nil {
		return common.Hash{}, err
	}
	composed, err := a.composer.ProposePivot(projectID, proj.PivotCount, percentages, metadataURI, founder)
	if err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, composed)
}

// ApprovePivot 审核通过转向提案，开启撤资窗口
func (a *ActionLogic) ApprovePivot(ctx context.Context, projectID uint64, moderator common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	pv, err := a.fetchPivot(ctx, projAddr, proj.PivotCount)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ApprovePivot(pv, a.clock.Now(), a.params); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.ApprovePivot(projectID, proj.PivotCount, moderator))
}

// PivotWithdraw 转向窗口内投资人全额撤资
func (a *ActionLogic) PivotWithdraw(ctx context.Context, projectID uint64, investor, mint common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	pv, err := a.fetchPivot(ctx, projAddr, proj.PivotCount)
	if err != nil {
		return common.Hash{}, err
	}
	inv, err := a.fetchInvestment(ctx, projAddr, mint)
	if err != nil {
		return common.Hash{}, err
	}
	if err := lifecycle.ValidatePivotWithdrawal(pv, inv, a.clock.Now()); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.PivotWithdraw(projectID, proj.PivotCount, proj.MilestoneCount, investor, mint))
}

// FinalizePivot 撤资窗口结束后由创始人落定转向
func (a *ActionLogic) FinalizePivot(ctx context.Context, projectID uint64, founder common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	pivotIndex := proj.PivotCount
	pv, err := a.fetchPivot(ctx, projAddr, pivotIndex)
	if err != nil {
		return common.Hash{}, err
	}
	newCount := uint8(len(pv.NewPercentages))
	if err := lifecycle.FinalizePivot(proj, pv, a.clock.Now()); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.FinalizePivot(projectID, pivotIndex, newCount, founder))
}

// CompleteProject 全部里程碑解锁后关闭项目
func (a *ActionLogic) CompleteProject(ctx context.Context, projectID uint64, founder common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	milestones := make([]*account.Milestone, 0, proj.MilestoneCount)
	for i := uint8(0); i < proj.MilestoneCount; i++ {
		ms, err := a.fetchMilestoneAt(ctx, projAddr, i)
		if err != nil {
			return common.Hash{}, err
		}
		milestones = append(milestones, ms)
	}
	if err := lifecycle.CompleteProject(proj, milestones); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.CompleteProject(projectID, proj.MilestoneCount, founder))
}

// InitVesting 初始化创始人归属计划
func (a *ActionLogic) InitVesting(ctx context.Context, projectID uint64, founder common.Address) (common.Hash, error) {
	proj, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	tk, err := a.fetchTokenomics(ctx, projAddr)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := lifecycle.InitFounderVesting(proj, tk, a.clock.Now()); err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, a.composer.InitVesting(projectID, founder))
}

// ClaimVesting 领取已归属的创始人份额
func (a *ActionLogic) ClaimVesting(ctx context.Context, projectID uint64, founder common.Address) (common.Hash, error) {
	_, projAddr, err := a.fetchProject(ctx, projectID)
	if err != nil {
		return common.Hash{}, err
	}
	vesting, err := a.fetchVesting(ctx, projAddr)
	if err != nil {
		return common.Hash{}, err
	}
	claimable, err := lifecycle.ClaimableVesting(vesting, a.clock.Now())
	if err != nil {
		return common.Hash{}, err
	}
	if claimable.Sign() == 0 {
		return common.Hash{}, errors.New("当前无可归属份额")
	}
	return a.writer.Submit(ctx, a.composer.ClaimVesting(projectID, founder))
}

// ReportScam 投资人举报项目欺诈
func (a *ActionLogic) ReportScam(ctx context.Context, projectID uint64, reporter, mint common.Address, detailURI string) (common.Hash, error) {
	composed, err := a.composer.ReportScam(projectID, reporter, mint, detailURI)
	if err != nil {
		return common.Hash{}, err
	}
	return a.writer.Submit(ctx, composed)
}

// fetchProject 拉取项目账户并返回其派生地址
func (a *ActionLogic) fetchProject(ctx context.Context, projectID uint64) (*account.Project, common.Hash, error) {
	addr := pda.ProjectAddress(a.programID, projectID)
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("拉取项目账户失败: %w", err)
	}
	proj, ok := rec.(*account.Project)
	if !ok {
		return nil, common.Hash{}, fmt.Errorf("地址 %s 不是项目账户", addr.Hex())
	}
	return proj, addr, nil
}

func (a *ActionLogic) fetchMilestone(ctx context.Context, projectID uint64, index uint8) (*account.Milestone, error) {
	projAddr := pda.ProjectAddress(a.programID, projectID)
	return a.fetchMilestoneAt(ctx, projAddr, index)
}

func (a *ActionLogic) fetchMilestoneAt(ctx context.Context, projAddr common.Hash, index uint8) (*account.Milestone, error) {
	addr := pda.MilestoneAddress(a.programID, projAddr, index)
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("拉取里程碑账户失败: %w", err)
	}
	ms, ok := rec.(*account.Milestone)
	if !ok {
		return nil, fmt.Errorf("地址 %s 不是里程碑账户", addr.Hex())
	}
	return ms, nil
}

func (a *ActionLogic) fetchInvestment(ctx context.Context, projAddr common.Hash, mint common.Address) (*account.Investment, error) {
	addr := pda.InvestmentAddress(a.programID, projAddr, mint)
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("拉取投资账户失败: %w", err)
	}
	inv, ok := rec.(*account.Investment)
	if !ok {
		return nil, fmt.Errorf("地址 %s 不是投资账户", addr.Hex())
	}
	return inv, nil
}

func (a *ActionLogic) fetchDistribution(ctx context.Context, projAddr common.Hash, index uint8) (*account.Distribution, error) {
	msAddr := pda.MilestoneAddress(a.programID, projAddr, index)
	addr := pda.DistributionAddress(a.programID, msAddr)
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("拉取配给账户失败: %w", err)
	}
	dist, ok := rec.(*account.Distribution)
	if !ok {
		return nil, fmt.Errorf("地址 %s 不是配给账户", addr.Hex())
	}
	return dist, nil
}

func (a *ActionLogic) fetchPivot(ctx context.Context, projAddr common.Hash, pivotCount uint8) (*account.PivotProposal, error) {
	addr := pda.PivotAddress(a.programID, projAddr, pivotCount)
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("拉取转向提案失败: %w", err)
	}
	pv, ok := rec.(*account.PivotProposal)
	if !ok {
		return nil, fmt.Errorf("地址 %s 不是转向提案账户", addr.Hex())
	}
	return pv, nil
}

func (a *ActionLogic) fetchTokenomics(ctx context.Context, projAddr common.Hash) (*account.Tokenomics, error) {
	addr := pda.TokenomicsAddress(a.programID, projAddr)
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("拉取代币经济账户失败: %w", err)
	}
	tk, ok := rec.(*account.Tokenomics)
	if !ok {
		return nil, fmt.Errorf("地址 %s 不是代币经济账户", addr.Hex())
	}
	return tk, nil
}

func (a *ActionLogic) fetchVesting(ctx context.Context, projAddr common.Hash) (*account.FounderVesting, error) {
	addr := pda.FounderVestingAddress(a.programID, projAddr)
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("拉取归属账户失败: %w", err)
	}
	v, ok := rec.(*account.FounderVesting)
	if !ok {
		return nil, fmt.Errorf("地址 %s 不是归属账户", addr.Hex())
	}
	return v, nil
}

// readVote 读取投票账户，不存在返回nil
func (a *ActionLogic) readVote(ctx context.Context, addr common.Hash) (*account.Vote, error) {
	rec, err := a.reader.Read(ctx, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("拉取投票账户失败: %w", err)
	}
	vote, ok := rec.(*account.Vote)
	if !ok {
		return nil, fmt.Errorf("地址 %s 不是投票账户", addr.Hex())
	}
	return vote, nil
}
