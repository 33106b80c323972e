package lifecycle

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zemyth-app/raise/internal/account"
)

// 端到端场景：三档项目从募资到首个里程碑解锁的完整链路
func TestFundingToFirstUnlockScenario(t *testing.T) {
	params := devParams()
	clock := FixedClock{T: t0}

	p := &account.Project{
		ID:           42,
		FundingGoal:  big.NewInt(100000),
		AmountRaised: new(big.Int),
		State:        account.ProjectOpen,
		Tiers: []account.Tier{
			{Amount: big.NewInt(100), MaxLots: 1, TokenRatio: 1, VoteMultiplier: 100},
			{Amount: big.NewInt(500), MaxLots: 1, TokenRatio: 2, VoteMultiplier: 150},
			{Amount: big.NewInt(1000), MaxLots: 200, TokenRatio: 3, VoteMultiplier: 200},
		},
		MilestoneCount: 3,
	}
	milestones := []*account.Milestone{
		{Index: 0, Percentage: 30, State: account.MilestoneApproved,
			YesVotes: new(big.Int), NoVotes: new(big.Int), TotalWeight: new(big.Int)},
		{Index: 1, Percentage: 40, State: account.MilestoneApproved,
			YesVotes: new(big.Int), NoVotes: new(big.Int), TotalWeight: new(big.Int)},
		{Index: 2, Percentage: 30, State: account.MilestoneApproved,
			YesVotes: new(big.Int), NoVotes: new(big.Int), TotalWeight: new(big.Int)},
	}

	// 首笔 1000 落在第2档
	out, err := ApplyInvestment(p, big.NewInt(1000), clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, out.TierIndex)
	assert.Equal(t, big.NewInt(2000), out.VoteWeight)
	assert.Equal(t, big.NewInt(3000), out.TokenAllocation)

	// 持续投资直到募满：最后一笔触发 Open→Funded，
	// 首个里程碑在同一原子步骤转入执行中
	weights := []*big.Int{out.VoteWeight}
	for p.State == account.ProjectOpen {
		out, err = ApplyInvestment(p, big.NewInt(1000), clock.Now())
		require.NoError(t, err)
		weights = append(weights, out.VoteWeight)
	}
	assert.Equal(t, account.ProjectFunded, p.State)
	assert.Zero(t, p.AmountRaised.Cmp(p.FundingGoal))
	milestones[0].State = account.MilestoneInProgress

	// 项目开始执行
	require.NoError(t, TransitionProject(p, account.ProjectInProgress))

	// 冷静期后提交首个里程碑
	submitAt := t0.Add(params.CoolingOff)
	require.NoError(t, SubmitMilestone(p, milestones[0], submitAt, params))

	// 三位投资人投票：2000+2000 赞成，2000 反对 → 66.7% 通过
	ApplyVote(milestones[0], account.VoteGood, weights[0])
	ApplyVote(milestones[0], account.VoteGood, weights[1])
	ApplyVote(milestones[0], account.VoteBad, weights[2])

	finalizeAt := submitAt.Add(params.VotingWindow)
	passed, err := FinalizeVoting(p, milestones[0], finalizeAt, params)
	require.NoError(t, err)
	assert.True(t, passed)

	// 解锁释放30%资金并推进到下一个里程碑
	require.NoError(t, UnlockMilestone(p, milestones[0], milestones[1]))
	assert.Equal(t, account.MilestoneUnlocked, milestones[0].State)
	assert.Equal(t, account.MilestoneInProgress, milestones[1].State)
	assert.Equal(t, uint64(70), UnreleasedPercent(milestones))

	// 此时弃置退款尚不可用
	inv := &account.Investment{Amount: big.NewInt(1000)}
	err = ValidateAbandonmentRefund(p, inv)
	assert.Error(t, err)
	assert.Equal(t, big.NewInt(700), RefundShare(p, inv, milestones))
}

// 时钟注入保证时间窗口规则可确定性复现
func TestClockInjection(t *testing.T) {
	fixed := FixedClock{T: t0}
	assert.Equal(t, t0, fixed.Now())
	assert.WithinDuration(t, time.Now(), SystemClock().Now(), time.Minute)
}
