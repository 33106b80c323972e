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

func newActiveDistribution(total uint64) *account.Distribution {
	return &account.Distribution{
		State:          account.DistributionActive,
		TotalInvestors: total,
		StartedAt:      t0.Unix(),
		UpdatedAt:      t0.Unix(),
	}
}

func TestClaimFlow(t *testing.T) {
	m := &account.Milestone{State: account.MilestonePassed}
	d := newActiveDistribution(2)
	inv := &account.Investment{TokenAllocation: big.NewInt(3000)}

	require.NoError(t, ValidateClaim(m, d, inv))
	ApplyClaim(d, inv, t0.Add(time.Minute))
	assert.True(t, inv.Claimed)
	assert.Equal(t, uint64(1), d.DistributedCount)
	assert.Equal(t, account.DistributionActive, d.State)

	// 重复领取被拒绝
	err := ValidateClaim(m, d, inv)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvestmentAlreadyClaimed, ""))

	// 最后一人领取后分发完成
	inv2 := &account.Investment{TokenAllocation: big.NewInt(1000)}
	require.NoError(t, ValidateClaim(m, d, inv2))
	ApplyClaim(d, inv2, t0.Add(2*time.Minute))
	assert.Equal(t, account.DistributionCompleted, d.State)
}

func TestClaimRequiresPassedMilestone(t *testing.T) {
	m := &account.Milestone{State: account.MilestoneUnderReview}
	d := newActiveDistribution(1)
	err := ValidateClaim(m, d, &account.Investment{})
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeTokensNotDistributable, ""))
}

func TestBatchPushBounded(t *testing.T) {
	d := newActiveDistribution(100)

	assert.NoError(t, ValidateBatchPush(d, account.MaxBatchSize))

	err := ValidateBatchPush(d, account.MaxBatchSize+1)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeBatchTooLarge, ""))
	err = ValidateBatchPush(d, 0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeBatchTooLarge, ""))

	d.State = account.DistributionCompleted
	err = ValidateBatchPush(d, 1)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDistributionNotActive, ""))
}

func TestForceCompleteAndRecovery(t *testing.T) {
	params := devParams()
	d := newActiveDistribution(10)
	d.DistributedCount = 4

	// 未达卡滞阈值不得熔断
	err := ForceCompleteDistribution(d, t0.Add(params.StallThreshold/2), params)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDistributionNotStalled, ""))

	stalledAt := t0.Add(params.StallThreshold)
	require.NoError(t, ForceCompleteDistribution(d, stalledAt, params))
	assert.Equal(t, account.DistributionForceCompleted, d.State)
	assert.Equal(t, stalledAt.Unix(), d.ForceCompletedAt)

	// 熔断后普通领取关闭，恢复路径开启
	m := &account.Milestone{State: account.MilestonePassed}
	missed := &account.Investment{TokenAllocation: big.NewInt(500)}
	err = ValidateClaim(m, d, missed)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeDistributionNotActive, ""))
	assert.NoError(t, ValidateRecoveryClaim(d, missed))

	// 已领取的投资没有恢复额度
	claimed := &account.Investment{Claimed: true}
	err = ValidateRecoveryClaim(d, claimed)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvestmentAlreadyClaimed, ""))
}

func TestInitFounderVesting(t *testing.T) {
	p := newOpenProject(1000)
	tk := &account.Tokenomics{
		TotalSupply:     big.NewInt(1000000),
		InvestorBps:     5000,
		FounderBps:      2000,
		LiquidityBps:    2000,
		TreasuryBps:     1000,
		CliffDuration:   3600,
		VestingDuration: 7200,
	}

	// 仅完成的项目触发归属
	_, err := InitFounderVesting(p, tk, t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidStateTransition, ""))

	p.State = account.ProjectCompleted
	v, err := InitFounderVesting(p, tk, t0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200000), v.TotalEntitlement, "1000000 * 2000bps")
	assert.Equal(t, t0.Add(time.Hour).Unix(), v.CliffEnd)
	assert.Equal(t, t0.Add(3*time.Hour).Unix(), v.VestingEnd)

	// 分配比例合计超出10000基点被拒绝
	tk.TreasuryBps = 2000
	_, err = InitFounderVesting(p, tk, t0)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeTokenomicsAllocationInvalid, ""))
}

func TestVestingSchedule(t *testing.T) {
	v := &account.FounderVesting{
		TotalEntitlement: big.NewInt(200000),
		CliffEnd:         t0.Add(time.Hour).Unix(),
		VestingEnd:       t0.Add(3 * time.Hour).Unix(),
		Claimed:          new(big.Int),
	}

	// 悬崖期前归属为零，任何领取被拒绝
	assert.Zero(t, VestedAmount(v, t0).Sign())
	_, err := ClaimableVesting(v, t0.Add(30*time.Minute))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeVestingCliffNotReached, ""))

	// 悬崖与终点之间线性释放：悬崖后1小时为半程
	half := VestedAmount(v, t0.Add(2*time.Hour))
	assert.Equal(t, big.NewInt(100000), half)

	// 终点后全额归属
	assert.Equal(t, big.NewInt(200000), VestedAmount(v, t0.Add(4*time.Hour)))

	// 分段领取：claimed 单调且不超过归属总额
	claimable, err := ClaimableVesting(v, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, ApplyVestingClaim(v, claimable))
	assert.Equal(t, big.NewInt(100000), v.Claimed)

	claimable, err = ClaimableVesting(v, t0.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100000), claimable)
	require.NoError(t, ApplyVestingClaim(v, claimable))

	// 领完后没有新的额度
	_, err = ClaimableVesting(v, t0.Add(5*time.Hour))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeVestingExhausted, ""))

	// 超额领取被拒绝
	err = ApplyVestingClaim(v, big.NewInt(1))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeVestingExhausted, ""))
}
