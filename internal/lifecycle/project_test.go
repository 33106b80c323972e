package lifecycle

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/protoerr"
)

var t0 = time.Unix(1700000000, 0)

func newOpenProject(goal int64) *account.Project {
	return &account.Project{
		ID:           1,
		FundingGoal:  big.NewInt(goal),
		AmountRaised: new(big.Int),
		State:        account.ProjectOpen,
		Tiers: []account.Tier{
			{Amount: big.NewInt(100), MaxLots: 1, TokenRatio: 1, VoteMultiplier: 100},
			{Amount: big.NewInt(500), MaxLots: 1, TokenRatio: 2, VoteMultiplier: 150},
			{Amount: big.NewInt(1000), MaxLots: 1, TokenRatio: 3, VoteMultiplier: 200},
		},
		MilestoneCount: 3,
	}
}

func TestValidateProjectTransition(t *testing.T) {
	// 合法链路
	assert.NoError(t, ValidateProjectTransition(account.ProjectDraft, account.ProjectPendingApproval))
	assert.NoError(t, ValidateProjectTransition(account.ProjectPendingApproval, account.ProjectOpen))
	assert.NoError(t, ValidateProjectTransition(account.ProjectOpen, account.ProjectFunded))
	assert.NoError(t, ValidateProjectTransition(account.ProjectFunded, account.ProjectInProgress))
	assert.NoError(t, ValidateProjectTransition(account.ProjectInProgress, account.ProjectCompleted))
	assert.NoError(t, ValidateProjectTransition(account.ProjectInProgress, account.ProjectAbandoned))

	// 不允许跳过中间状态
	err := ValidateProjectTransition(account.ProjectDraft, account.ProjectOpen)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidStateTransition, ""))
	err = ValidateProjectTransition(account.ProjectOpen, account.ProjectInProgress)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidStateTransition, ""))

	// 终止状态不再转换
	err = ValidateProjectTransition(account.ProjectCompleted, account.ProjectInProgress)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeProjectAlreadyTerminal, ""))

	// TGEFailed 仅可从 Funded 到达，Cancelled 仅限募资完成前
	err = ValidateProjectTransition(account.ProjectInProgress, account.ProjectTGEFailed)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidStateTransition, ""))
	err = ValidateProjectTransition(account.ProjectInProgress, account.ProjectCancelled)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidStateTransition, ""))
	err = ValidateProjectTransition(account.ProjectFunded, account.ProjectCancelled)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidStateTransition, ""))
}

func TestApplyInvestmentTierAndWeights(t *testing.T) {
	p := newOpenProject(100000)

	// 1000 落在第2档：权重 1000*200/100=2000，配额 1000*3=3000
	out, err := ApplyInvestment(p, big.NewInt(1000), t0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.TierIndex)
	assert.Equal(t, big.NewInt(2000), out.VoteWeight)
	assert.Equal(t, big.NewInt(3000), out.TokenAllocation)
	assert.False(t, out.CompletedFunding)
	assert.Equal(t, big.NewInt(1000), p.AmountRaised)
	assert.Equal(t, uint64(1), p.Tiers[2].FilledLots)
	assert.Equal(t, uint64(1), p.InvestorCount)
}

func TestApplyInvestmentRejections(t *testing.T) {
	p := newOpenProject(100000)

	// 低于最低门槛
	_, err := ApplyInvestment(p, big.NewInt(50), t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeAmountBelowMinimumTier, ""))

	// 档位名额耗尽
	_, err = ApplyInvestment(p, big.NewInt(100), t0)
	require.NoError(t, err)
	_, err = ApplyInvestment(p, big.NewInt(100), t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeTierLotsExhausted, ""))

	// 超出剩余募资额度
	small := newOpenProject(800)
	_, err = ApplyInvestment(small, big.NewInt(1000), t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeFundingGoalExceeded, ""))

	// 非募资状态
	p.State = account.ProjectFunded
	_, err = ApplyInvestment(p, big.NewInt(500), t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeProjectNotOpen, ""))
}

func TestApplyInvestmentCompletesFunding(t *testing.T) {
	// 目标恰为三档之和，逐笔投满后项目转入募资完成
	p := newOpenProject(1600)

	_, err := ApplyInvestment(p, big.NewInt(100), t0)
	require.NoError(t, err)
	_, err = ApplyInvestment(p, big.NewInt(500), t0)
	require.NoError(t, err)
	out, err := ApplyInvestment(p, big.NewInt(1000), t0)
	require.NoError(t, err)

	assert.True(t, out.CompletedFunding)
	assert.Equal(t, account.ProjectFunded, p.State)
	assert.Equal(t, t0.Unix(), p.FundedAt)
	assert.Zero(t, p.AmountRaised.Cmp(p.FundingGoal))
}

func TestUnreleasedPercentAndRefundShare(t *testing.T) {
	p := newOpenProject(100000)
	p.AmountRaised = big.NewInt(100000)
	milestones := []*account.Milestone{
		{Index: 0, Percentage: 30, State: account.MilestoneUnlocked},
		{Index: 1, Percentage: 40, State: account.MilestoneInProgress},
		{Index: 2, Percentage: 30, State: account.MilestoneApproved},
	}
	assert.Equal(t, uint64(70), UnreleasedPercent(milestones))

	inv := &account.Investment{Amount: big.NewInt(1000)}
	// 未释放 70000，投资占比 1000/100000 → 退款 700
	assert.Equal(t, big.NewInt(700), RefundShare(p, inv, milestones))
}

func TestValidateAbandonmentRefund(t *testing.T) {
	p := newOpenProject(1000)
	inv := &account.Investment{Amount: big.NewInt(100)}

	err := ValidateAbandonmentRefund(p, inv)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeRefundNotAvailable, ""))

	p.State = account.ProjectAbandoned
	assert.NoError(t, ValidateAbandonmentRefund(p, inv))

	// 标记单调：已退款不得再退
	inv.Refunded = true
	err = ValidateAbandonmentRefund(p, inv)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvestmentAlreadyRefunded, ""))
}

func TestValidateExitClaim(t *testing.T) {
	p := newOpenProject(1000)
	inv := &account.Investment{Amount: big.NewInt(100)}

	// 窗口未开启
	err := ValidateExitClaim(p, inv, t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeRefundNotAvailable, ""))

	p.ExitWindowEnd = t0.Add(time.Hour).Unix()
	assert.NoError(t, ValidateExitClaim(p, inv, t0))

	// 窗口关闭后拒绝
	err = ValidateExitClaim(p, inv, t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeExitWindowClosed, ""))
}

func TestCompleteProject(t *testing.T) {
	p := newOpenProject(1000)
	p.State = account.ProjectInProgress
	milestones := []*account.Milestone{
		{Index: 0, Percentage: 50, State: account.MilestoneUnlocked},
		{Index: 1, Percentage: 50, State: account.MilestonePassed},
	}

	err := CompleteProject(p, milestones)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidStateTransition, ""))

	milestones[1].State = account.MilestoneUnlocked
	require.NoError(t, CompleteProject(p, milestones))
	assert.Equal(t, account.ProjectCompleted, p.State)
}
