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

func TestProposePivot(t *testing.T) {
	p := newOpenProject(1000)

	// 仅执行中的项目可以转型
	_, err := ProposePivot(p, []uint8{50, 50}, "ipfs://QmNew", t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeProjectNotInProgress, ""))

	p.State = account.ProjectInProgress

	// 新比例集合必须合法
	_, err = ProposePivot(p, []uint8{50, 40}, "ipfs://QmNew", t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodePivotMilestonesInvalid, ""))

	pv, err := ProposePivot(p, []uint8{50, 50}, "ipfs://QmNew", t0)
	require.NoError(t, err)
	assert.Equal(t, account.PivotPendingModeratorApproval, pv.State)
	assert.True(t, p.HasActivePivot)

	// 同一时间只允许一个进行中的提案
	_, err = ProposePivot(p, []uint8{100}, "ipfs://QmOther", t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodePivotNotPending, ""))
}

func TestPivotFlow(t *testing.T) {
	params := devParams()
	p := newOpenProject(1000)
	p.State = account.ProjectInProgress
	p.MilestoneCount = 3

	pv, err := ProposePivot(p, []uint8{50, 50}, "ipfs://QmNew", t0)
	require.NoError(t, err)

	// 未批准不能定稿，也不能撤出
	err = FinalizePivot(p, pv, t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodePivotNotApproved, ""))

	inv := &account.Investment{Amount: big.NewInt(100)}
	err = ValidatePivotWithdrawal(pv, inv, t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodePivotNotApproved, ""))

	// 批准开启撤出窗口
	require.NoError(t, ApprovePivot(pv, t0, params))
	assert.Equal(t, account.PivotApprovedAwaitingWindow, pv.State)
	assert.Equal(t, t0.Add(params.WithdrawalWindow).Unix(), pv.WithdrawWindowEnd)

	// 状态只向前：不能重复批准
	err = ApprovePivot(pv, t0, params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodePivotNotPending, ""))

	// 窗口内撤出
	require.NoError(t, ValidatePivotWithdrawal(pv, inv, t0.Add(time.Minute)))
	ApplyPivotWithdrawal(pv, inv, big.NewInt(70))
	assert.True(t, inv.Withdrawn)
	assert.Equal(t, big.NewInt(70), pv.WithdrawnAmount)
	assert.Equal(t, uint64(1), pv.WithdrawnCount)

	// 已撤出的投资不能再次撤出
	err = ValidatePivotWithdrawal(pv, inv, t0.Add(time.Minute))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvestmentAlreadyWithdrawn, ""))

	// 窗口未结束不能定稿
	err = FinalizePivot(p, pv, t0.Add(time.Minute))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodePivotWindowStillOpen, ""))

	// 窗口结束后拒绝撤出、允许定稿
	after := t0.Add(params.WithdrawalWindow + time.Minute)
	err = ValidatePivotWithdrawal(pv, &account.Investment{Amount: big.NewInt(100)}, after)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodePivotWindowClosed, ""))

	require.NoError(t, FinalizePivot(p, pv, after))
	assert.Equal(t, account.PivotFinalized, pv.State)
	assert.Equal(t, uint8(2), p.MilestoneCount, "里程碑集合被替换")
	assert.Equal(t, uint8(1), p.PivotCount)
	assert.False(t, p.HasActivePivot)
	assert.Zero(t, p.CurrentMilestone)
}
