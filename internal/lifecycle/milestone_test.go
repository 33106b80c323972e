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

func devParams() Params { return DefaultParams(true) }

func newInProgressMilestone() *account.Milestone {
	return &account.Milestone{
		Index:       0,
		Percentage:  30,
		State:       account.MilestoneInProgress,
		YesVotes:    new(big.Int),
		NoVotes:     new(big.Int),
		TotalWeight: new(big.Int),
	}
}

func TestSetDeadlineBounds(t *testing.T) {
	params := devParams()
	m := newInProgressMilestone()

	// 低于下限
	err := SetDeadline(m, t0.Add(time.Minute), t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDeadlineOutOfBounds, ""))

	// 超过一年上限
	err = SetDeadline(m, t0.Add(366*24*time.Hour), t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDeadlineOutOfBounds, ""))

	// 过去的时间
	err = SetDeadline(m, t0.Add(-time.Hour), t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDeadlineOutOfBounds, ""))

	require.NoError(t, SetDeadline(m, t0.Add(time.Hour), t0, params))
	assert.Equal(t, t0.Add(time.Hour).Unix(), m.Deadline)
}

func TestExtendDeadlineLimits(t *testing.T) {
	params := devParams()
	m := newInProgressMilestone()
	require.NoError(t, SetDeadline(m, t0.Add(time.Hour), t0, params))

	// 未设置截止时间的里程碑不能延长
	fresh := newInProgressMilestone()
	err := ExtendDeadline(fresh, t0.Add(2*time.Hour), t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDeadlineNotSet, ""))

	// 只能向后延长
	err = ExtendDeadline(m, t0.Add(30*time.Minute), t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDeadlineNotForward, ""))

	// 三次延长后用尽
	deadline := t0.Add(time.Hour)
	for i := 0; i < account.MaxExtensions; i++ {
		deadline = deadline.Add(time.Hour)
		require.NoError(t, ExtendDeadline(m, deadline, t0, params))
	}
	err = ExtendDeadline(m, deadline.Add(time.Hour), t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDeadlineExtensionExhausted, ""))
	assert.Equal(t, uint8(3), m.ExtensionCount)

	// 截止时间已过则不能延长
	m2 := newInProgressMilestone()
	require.NoError(t, SetDeadline(m2, t0.Add(time.Hour), t0, params))
	err = ExtendDeadline(m2, t0.Add(3*time.Hour), t0.Add(2*time.Hour), params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDeadlineAlreadyPassed, ""))
}

func TestSubmitMilestoneCoolingOff(t *testing.T) {
	params := devParams()
	p := newOpenProject(1000)
	p.State = account.ProjectInProgress
	p.FundedAt = t0.Unix()
	m := newInProgressMilestone()

	// 冷静期内拒绝首个里程碑的首次提交
	err := SubmitMilestone(p, m, t0.Add(30*time.Second), params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeCoolingOffNotElapsed, ""))

	submitAt := t0.Add(params.CoolingOff)
	require.NoError(t, SubmitMilestone(p, m, submitAt, params))
	assert.Equal(t, account.MilestoneUnderReview, m.State)
	assert.Equal(t, submitAt.Add(params.VotingWindow).Unix(), m.VotingEndsAt)
}

func TestValidateVote(t *testing.T) {
	m := newInProgressMilestone()
	m.State = account.MilestoneUnderReview
	m.VotingRound = 1
	m.VotingEndsAt = t0.Add(time.Hour).Unix()
	inv := &account.Investment{Amount: big.NewInt(1000), VoteWeight: big.NewInt(2000)}

	assert.NoError(t, ValidateVote(m, inv, nil, t0))

	// 每轮只能投一次；上一轮的旧票不阻止本轮投票
	prior := &account.Vote{Round: 1}
	err := ValidateVote(m, inv, prior, t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDuplicateVote, ""))
	stale := &account.Vote{Round: 0}
	assert.NoError(t, ValidateVote(m, inv, stale, t0))

	// 窗口结束后拒绝
	err = ValidateVote(m, inv, nil, t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeVotingWindowClosed, ""))

	// 已退出的投资不具投票权
	inv.Withdrawn = true
	err = ValidateVote(m, inv, nil, t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeNotInvestor, ""))
}

func TestFinalizeVotingStrictMajority(t *testing.T) {
	params := devParams()
	endAt := t0.Add(-time.Minute)

	cases := []struct {
		name       string
		yes, no    int64
		total      int64
		wantPassed bool
	}{
		{"60/40 通过", 60, 40, 100, true},
		{"50/50 持平判失败", 50, 50, 100, false},
		{"恰好50%判失败", 50, 0, 100, false},
		{"无人投票判失败", 0, 0, 0, false},
		{"51/49 通过", 51, 49, 100, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := newOpenProject(1000)
			p.State = account.ProjectInProgress
			m := newInProgressMilestone()
			m.State = account.MilestoneUnderReview
			m.YesVotes = big.NewInt(c.yes)
			m.NoVotes = big.NewInt(c.no)
			m.TotalWeight = big.NewInt(c.total)
			m.VotingEndsAt = endAt.Unix()

			passed, err := FinalizeVoting(p, m, t0, params)
			require.NoError(t, err)
			assert.Equal(t, c.wantPassed, passed)
			if c.wantPassed {
				assert.Equal(t, account.MilestonePassed, m.State)
				assert.Zero(t, p.ConsecutiveFailures)
			} else {
				assert.Equal(t, account.MilestoneFailed, m.State)
				assert.Equal(t, uint8(1), p.ConsecutiveFailures)
			}
		})
	}
}

func TestFinalizeVotingRequiresWindowElapsed(t *testing.T) {
	params := devParams()
	p := newOpenProject(1000)
	m := newInProgressMilestone()
	m.State = account.MilestoneUnderReview
	m.VotingEndsAt = t0.Add(time.Hour).Unix()

	_, err := FinalizeVoting(p, m, t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeVotingWindowNotElapsed, ""))
}

func TestThreeConsecutiveFailuresOpenExitWindow(t *testing.T) {
	params := devParams()
	p := newOpenProject(1000)
	p.State = account.ProjectInProgress
	m := newInProgressMilestone()

	for i := 0; i < 3; i++ {
		m.State = account.MilestoneUnderReview
		m.YesVotes = new(big.Int)
		m.NoVotes = big.NewInt(100)
		m.TotalWeight = big.NewInt(100)
		m.VotingEndsAt = t0.Add(-time.Minute).Unix()

		passed, err := FinalizeVoting(p, m, t0, params)
		require.NoError(t, err)
		require.False(t, passed)

		if i < 2 {
			assert.Zero(t, p.ExitWindowEnd, "前两次失败不开启退出窗口")
			require.NoError(t, ReworkMilestone(m))
		}
	}

	assert.Equal(t, uint8(3), p.ConsecutiveFailures)
	assert.Equal(t, t0.Add(params.ExitWindow).Unix(), p.ExitWindowEnd)
}

func TestReworkMilestone(t *testing.T) {
	m := newInProgressMilestone()

	// 仅失败状态可返工
	err := ReworkMilestone(m)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeMilestoneNotFailed, ""))

	m.State = account.MilestoneFailed
	m.YesVotes = big.NewInt(10)
	m.NoVotes = big.NewInt(90)
	m.TotalWeight = big.NewInt(100)
	m.VoterCount = 7
	m.VotingRound = 1

	require.NoError(t, ReworkMilestone(m))
	assert.Equal(t, account.MilestoneInProgress, m.State)
	assert.Zero(t, m.YesVotes.Sign())
	assert.Zero(t, m.NoVotes.Sign())
	assert.Zero(t, m.TotalWeight.Sign())
	assert.Zero(t, m.VoterCount)
	assert.Equal(t, uint8(2), m.VotingRound)
}

func TestApplyVote(t *testing.T) {
	m := newInProgressMilestone()
	ApplyVote(m, account.VoteGood, big.NewInt(60))
	ApplyVote(m, account.VoteBad, big.NewInt(40))

	assert.Equal(t, big.NewInt(60), m.YesVotes)
	assert.Equal(t, big.NewInt(40), m.NoVotes)
	assert.Equal(t, big.NewInt(100), m.TotalWeight)
	assert.Equal(t, uint64(2), m.VoterCount)
}

func TestUnlockMilestoneAdvancesProject(t *testing.T) {
	p := newOpenProject(1000)
	p.State = account.ProjectInProgress
	m := newInProgressMilestone()
	m.State = account.MilestonePassed
	next := &account.Milestone{Index: 1, State: account.MilestoneApproved}

	require.NoError(t, UnlockMilestone(p, m, next))
	assert.Equal(t, account.MilestoneUnlocked, m.State)
	assert.Equal(t, account.MilestoneInProgress, next.State)
	assert.Equal(t, uint8(1), p.CurrentMilestone)

	// 最后一个里程碑没有后继
	last := &account.Milestone{Index: 2, State: account.MilestonePassed}
	require.NoError(t, UnlockMilestone(p, last, nil))
	assert.Equal(t, account.MilestoneUnlocked, last.State)
}

func TestCheckAbandonment(t *testing.T) {
	params := devParams()
	p := newOpenProject(1000)
	p.State = account.ProjectInProgress
	m := newInProgressMilestone()

	// 未设置截止时间不参与判定
	abandoned, err := CheckAbandonment(p, m, t0, params)
	require.NoError(t, err)
	assert.False(t, abandoned)

	m.Deadline = t0.Unix()

	// 截止时间已过但不活跃超时未到
	abandoned, err = CheckAbandonment(p, m, t0.Add(params.InactivityTimeout/2), params)
	require.NoError(t, err)
	assert.False(t, abandoned)
	assert.Equal(t, account.ProjectInProgress, p.State)

	// 超时后判定弃置
	abandoned, err = CheckAbandonment(p, m, t0.Add(params.InactivityTimeout), params)
	require.NoError(t, err)
	assert.True(t, abandoned)
	assert.Equal(t, account.ProjectAbandoned, p.State)
}
