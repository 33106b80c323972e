package event

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/ledger"
	"github.com/zemyth-app/raise/internal/logger"
	"github.com/zemyth-app/raise/internal/logic"
	"github.com/zemyth-app/raise/internal/model"
	"github.com/zemyth-app/raise/internal/pda"
)

// Processor 事件处理器。事件只是触发信号，快照内容一律
// 以重新拉取的链上账户为准，避免事件字段与账户状态漂移
type Processor struct {
	reader    ledger.Reader
	programID common.Address

	projectLogic    *logic.ProjectLogic
	milestoneLogic  *logic.MilestoneLogic
	investmentLogic *logic.InvestmentLogic
	voteLogic       *logic.VoteLogic
	refundLogic     *logic.RefundLogic
}

// NewProcessor 创建事件处理器
func NewProcessor(reader ledger.Reader, programID common.Address,
	projectLogic *logic.ProjectLogic, milestoneLogic *logic.MilestoneLogic,
	investmentLogic *logic.InvestmentLogic, voteLogic *logic.VoteLogic,
	refundLogic *logic.RefundLogic) *Processor {
	return &Processor{
		reader:          reader,
		programID:       programID,
		projectLogic:    projectLogic,
		milestoneLogic:  milestoneLogic,
		investmentLogic: investmentLogic,
		voteLogic:       voteLogic,
		refundLogic:     refundLogic,
	}
}

// Process 处理单条已解码事件
func (p *Processor) Process(ctx context.Context, ev *Decoded) error {
	switch ev.Name {
	case "ProjectCreated", "ProjectApproved", "ProjectFunded", "ProjectAbandoned",
		"ExitWindowOpened", "ProjectCompleted", "PivotProposed", "PivotApproved",
		"PivotFinalized", "ScamReported", "FundsReleased":
		return p.refreshProject(ctx, ev)
	case "InvestmentMade":
		return p.processInvestment(ctx, ev)
	case "MilestoneSubmitted", "VotingFinalized", "MilestoneReworked", "DeadlineExtended":
		return p.refreshMilestone(ctx, ev)
	case "VoteCast":
		return p.processVote(ctx, ev)
	case "TokensClaimed":
		return p.processClaim(ctx, ev, model.ClaimKindToken)
	case "DistributionForceCompleted":
		return p.refreshMilestone(ctx, ev)
	case "RefundClaimed":
		return p.processRefund(ctx, ev, p.refundKind(ctx, ev))
	case "PivotWithdrawal":
		return p.processRefund(ctx, ev, model.RefundKindPivot)
	case "VestingClaimed":
		return p.processVestingClaim(ev)
	default:
		logger.Warn("Unknown event type: %s", ev.Name)
		return nil
	}
}

// refreshProject 以链上账户为准刷新项目快照
func (p *Processor) refreshProject(ctx context.Context, ev *Decoded) error {
	addr := pda.ProjectAddress(p.programID, ev.ProjectID)
	rec, err := p.reader.Read(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to read project %d: %w", ev.ProjectID, err)
	}
	proj, ok := rec.(*account.Project)
	if !ok {
		return fmt.Errorf("account at %s is not a project", addr.Hex())
	}
	return p.projectLogic.UpsertSnapshot(addr.Hex(), proj)
}

// refreshMilestone 刷新里程碑快照，项目快照一并带新
func (p *Processor) refreshMilestone(ctx context.Context, ev *Decoded) error {
	index, err := fieldU8(ev, "milestoneIndex")
	if err != nil {
		return err
	}

	projAddr := pda.ProjectAddress(p.programID, ev.ProjectID)
	msAddr := pda.MilestoneAddress(p.programID, projAddr, index)
	rec, err := p.reader.Read(ctx, msAddr)
	if err != nil {
		return fmt.Errorf("failed to read milestone %d/%d: %w", ev.ProjectID, index, err)
	}
	ms, ok := rec.(*account.Milestone)
	if !ok {
		return fmt.Errorf("account at %s is not a milestone", msAddr.Hex())
	}
	if err := p.milestoneLogic.UpsertSnapshot(int64(ev.ProjectID), ms); err != nil {
		return err
	}
	return p.refreshProject(ctx, ev)
}

// processInvestment 刷新投资快照与项目快照
func (p *Processor) processInvestment(ctx context.Context, ev *Decoded) error {
	mint, err := fieldAddress(ev, "mint")
	if err != nil {
		return err
	}

	projAddr := pda.ProjectAddress(p.programID, ev.ProjectID)
	invAddr := pda.InvestmentAddress(p.programID, projAddr, mint)
	rec, err := p.reader.Read(ctx, invAddr)
	if err != nil {
		return fmt.Errorf("failed to read investment: %w", err)
	}
	inv, ok := rec.(*account.Investment)
	if !ok {
		return fmt.Errorf("account at %s is not an investment", invAddr.Hex())
	}
	if err := p.investmentLogic.UpsertSnapshot(int64(ev.ProjectID), inv, ev.TxHash.Hex()); err != nil {
		return err
	}
	return p.refreshProject(ctx, ev)
}

// processVote 记录投票并刷新里程碑计票
func (p *Processor) processVote(ctx context.Context, ev *Decoded) error {
	voter, err := fieldAddress(ev, "voter")
	if err != nil {
		return err
	}
	index, err := fieldU8(ev, "milestoneIndex")
	if err != nil {
		return err
	}
	round, err := fieldU8(ev, "votingRound")
	if err != nil {
		return err
	}
	choiceRaw, err := fieldU8(ev, "choice")
	if err != nil {
		return err
	}
	weight, err := fieldAmount(ev, "weight")
	if err != nil {
		return err
	}

	choice := "bad"
	if account.VoteChoice(choiceRaw) == account.VoteGood {
		choice = "good"
	}

	record := &model.VoteRecordModel{
		ProjectId:      int64(ev.ProjectID),
		MilestoneIndex: int(index),
		VotingRound:    int(round),
		Voter:          voter.Hex(),
		Choice:         choice,
		Weight:         weight.String(),
		TxHash:         ev.TxHash.Hex(),
		BlockNum:       int64(ev.BlockNumber),
	}
	if err := p.voteLogic.RecordVote(record); err != nil {
		return err
	}
	return p.refreshMilestone(ctx, ev)
}

// processClaim 记录领取并标记投资快照
func (p *Processor) processClaim(ctx context.Context, ev *Decoded, kind model.ClaimKind) error {
	investor, err := fieldAddress(ev, "investor")
	if err != nil {
		return err
	}
	mint, err := fieldAddress(ev, "mint")
	if err != nil {
		return err
	}
	index, err := fieldU8(ev, "milestoneIndex")
	if err != nil {
		return err
	}
	amount, err := fieldAmount(ev, "amount")
	if err != nil {
		return err
	}

	record := &model.ClaimRecordModel{
		ProjectId:      int64(ev.ProjectID),
		Investor:       investor.Hex(),
		MilestoneIndex: int(index),
		Amount:         amount.String(),
		Kind:           kind,
		TxHash:         ev.TxHash.Hex(),
		LogIndex:       int64(ev.LogIndex),
		BlockNum:       int64(ev.BlockNumber),
	}
	if err := p.refundLogic.RecordClaim(record); err != nil {
		return err
	}
	if err := p.investmentLogic.MarkClaimed(int64(ev.ProjectID), mint.Hex()); err != nil {
		// 投资快照可能尚未同步，领取记录本身已落库
		logger.Warn("Failed to mark investment claimed for project %d: %v", ev.ProjectID, err)
	}
	return nil
}

// processRefund 记录退款并标记投资快照
func (p *Processor) processRefund(ctx context.Context, ev *Decoded, kind model.RefundKind) error {
	investor, err := fieldAddress(ev, "investor")
	if err != nil {
		return err
	}
	mint, err := fieldAddress(ev, "mint")
	if err != nil {
		return err
	}
	amount, err := fieldAmount(ev, "amount")
	if err != nil {
		return err
	}

	record := &model.RefundRecordModel{
		ProjectId: int64(ev.ProjectID),
		Investor:  investor.Hex(),
		Amount:    amount.String(),
		Kind:      kind,
		TxHash:    ev.TxHash.Hex(),
		LogIndex:  int64(ev.LogIndex),
		BlockNum:  int64(ev.BlockNumber),
	}
	if err := p.refundLogic.RecordRefund(record); err != nil {
		return err
	}

	mark := p.investmentLogic.MarkRefunded
	if kind == model.RefundKindPivot {
		mark = p.investmentLogic.MarkWithdrawn
	}
	if err := mark(int64(ev.ProjectID), mint.Hex()); err != nil {
		logger.Warn("Failed to mark investment refunded for project %d: %v", ev.ProjectID, err)
	}
	return p.refreshProject(ctx, ev)
}

// refundKind 区分退款来源：已废弃项目是按比例退款，否则为退出窗口退款
func (p *Processor) refundKind(ctx context.Context, ev *Decoded) model.RefundKind {
	addr := pda.ProjectAddress(p.programID, ev.ProjectID)
	rec, err := p.reader.Read(ctx, addr)
	if err == nil {
		if proj, ok := rec.(*account.Project); ok && proj.State == account.ProjectAbandoned {
			return model.RefundKindAbandonment
		}
	}
	return model.RefundKindExit
}

// processVestingClaim 记录创始人归属领取
func (p *Processor) processVestingClaim(ev *Decoded) error {
	amount, err := fieldAmount(ev, "amount")
	if err != nil {
		return err
	}
	return p.refundLogic.RecordClaim(&model.ClaimRecordModel{
		ProjectId: int64(ev.ProjectID),
		Amount:    amount.String(),
		Kind:      model.ClaimKindVesting,
		TxHash:    ev.TxHash.Hex(),
		LogIndex:  int64(ev.LogIndex),
		BlockNum:  int64(ev.BlockNumber),
	})
}

func fieldU8(ev *Decoded, name string) (uint8, error) {
	v, ok := ev.Fields[name].(uint8)
	if !ok {
		return 0, fmt.Errorf("event %s missing uint8 field %s", ev.Name, name)
	}
	return v, nil
}

func fieldAddress(ev *Decoded, name string) (common.Address, error) {
	v, ok := ev.Fields[name].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("event %s missing address field %s", ev.Name, name)
	}
	return v, nil
}

func fieldAmount(ev *Decoded, name string) (*big.Int, error) {
	v, ok := ev.Fields[name].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("event %s missing amount field %s", ev.Name, name)
	}
	return v, nil
}
