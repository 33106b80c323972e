package lifecycle

import (
	"math/big"
	"time"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/protoerr"
	"github.com/zemyth-app/raise/internal/tier"
)

// StartDistribution 里程碑通过后初始化代币分发进度账户
func StartDistribution(m *account.Milestone, totalInvestors uint64, now time.Time) (*account.Distribution, error) {
	if m.State != account.MilestonePassed && m.State != account.MilestoneUnlocked {
		return nil, protoerr.New(protoerr.CodeTokensNotDistributable,
			"里程碑状态为 %s，不能开始分发", m.State)
	}
	return &account.Distribution{
		State:          account.DistributionActive,
		TotalInvestors: totalInvestors,
		StartedAt:      now.Unix(),
		UpdatedAt:      now.Unix(),
	}, nil
}

// ValidateClaim 校验投资人自助领取里程碑通过后分配的代币。
// 领取是自助式的，不由任何人批量推送
func ValidateClaim(m *account.Milestone, d *account.Distribution, inv *account.Investment) error {
	if m.State != account.MilestonePassed && m.State != account.MilestoneUnlocked {
		return protoerr.New(protoerr.CodeTokensNotDistributable,
			"里程碑状态为 %s，代币不可领取", m.State)
	}
	if d.State != account.DistributionActive {
		return protoerr.New(protoerr.CodeDistributionNotActive,
			"分发状态为 %s", d.State)
	}
	return validateClaimableInvestment(inv)
}

// ApplyClaim 落地一次领取：置已领取标记并推进分发进度
func ApplyClaim(d *account.Distribution, inv *account.Investment, now time.Time) {
	inv.Claimed = true
	d.DistributedCount++
	d.UpdatedAt = now.Unix()
	if d.DistributedCount >= d.TotalInvestors {
		d.State = account.DistributionCompleted
	}
}

// ValidateBatchPush 校验旧版批量推送分发。该路径仅为向后兼容保留，
// 单批数量受上限约束。与自助领取同时使用时的去重行为链上未定义，
// 调用方不应混用两条路径
func ValidateBatchPush(d *account.Distribution, batchSize int) error {
	if d.State != account.DistributionActive {
		return protoerr.New(protoerr.CodeDistributionNotActive,
			"分发状态为 %s", d.State)
	}
	if batchSize <= 0 || batchSize > account.MaxBatchSize {
		return protoerr.New(protoerr.CodeBatchTooLarge,
			"批量数量 %d 超出上限 %d", batchSize, account.MaxBatchSize)
	}
	return nil
}

// ForceCompleteDistribution 管理员熔断：强制完成卡滞超过阈值的分发。
// 之后受影响的投资人通过恢复路径补领
func ForceCompleteDistribution(d *account.Distribution, now time.Time, params Params) error {
	if d.State != account.DistributionActive {
		return protoerr.New(protoerr.CodeDistributionNotActive,
			"分发状态为 %s，无需熔断", d.State)
	}
	stalledFor := now.Sub(time.Unix(d.UpdatedAt, 0))
	if stalledFor < params.StallThreshold {
		return protoerr.New(protoerr.CodeDistributionNotStalled,
			"分发仅停滞 %s，未达阈值 %s", stalledFor, params.StallThreshold)
	}
	d.State = account.DistributionForceCompleted
	d.ForceCompletedAt = now.Unix()
	return nil
}

// ValidateRecoveryClaim 校验强制完成后的补领。
// 只有在分发被熔断且该笔投资尚未领取时可用
func ValidateRecoveryClaim(d *account.Distribution, inv *account.Investment) error {
	if d.State != account.DistributionForceCompleted {
		return protoerr.New(protoerr.CodeDistributionNotActive,
			"分发状态为 %s，恢复路径未开启", d.State)
	}
	return validateClaimableInvestment(inv)
}

func validateClaimableInvestment(inv *account.Investment) error {
	if inv.Claimed {
		return protoerr.New(protoerr.CodeInvestmentAlreadyClaimed, "该笔投资的代币已领取")
	}
	if inv.Refunded {
		return protoerr.New(protoerr.CodeInvestmentAlreadyRefunded, "该笔投资已退款")
	}
	if inv.Withdrawn {
		return protoerr.New(protoerr.CodeInvestmentAlreadyWithdrawn, "该笔投资已撤出")
	}
	return nil
}

// InitFounderVesting 项目完成事件触发创始人归属初始化。
// 归属总额 = floor(代币总量 * 创始人基点 / 10000)
func InitFounderVesting(p *account.Project, tk *account.Tokenomics, now time.Time) (*account.FounderVesting, error) {
	if p.State != account.ProjectCompleted {
		return nil, protoerr.New(protoerr.CodeInvalidStateTransition,
			"项目状态为 %s，归属未开始", p.State)
	}
	if !tk.AllocationValid() {
		return nil, protoerr.New(protoerr.CodeTokenomicsAllocationInvalid,
			"代币分配比例合计超过 %d 基点", account.BpsDenominator)
	}
	entitlement := tier.ProRataShare(tk.TotalSupply,
		new(big.Int).SetUint64(uint64(tk.FounderBps)),
		big.NewInt(account.BpsDenominator))
	cliffEnd := now.Add(time.Duration(tk.CliffDuration) * time.Second)
	return &account.FounderVesting{
		TotalEntitlement: entitlement,
		CliffEnd:         cliffEnd.Unix(),
		VestingEnd:       cliffEnd.Add(time.Duration(tk.VestingDuration) * time.Second).Unix(),
		Claimed:          new(big.Int),
	}, nil
}

// VestedAmount 计算给定时刻已归属的创始人代币总量。
// 悬崖期前为零，悬崖期与归属终点之间线性释放，终点后全额归属，全程截断
func VestedAmount(v *account.FounderVesting, now time.Time) *big.Int {
	ts := now.Unix()
	if ts < v.CliffEnd {
		return new(big.Int)
	}
	if ts >= v.VestingEnd {
		return new(big.Int).Set(v.TotalEntitlement)
	}
	elapsed := big.NewInt(ts - v.CliffEnd)
	span := big.NewInt(v.VestingEnd - v.CliffEnd)
	return tier.ProRataShare(v.TotalEntitlement, elapsed, span)
}

// ClaimableVesting 校验并计算当前可领取的归属额：已归属减去已领取。
// 悬崖期前任何领取都被拒绝
func ClaimableVesting(v *account.FounderVesting, now time.Time) (*big.Int, error) {
	if now.Unix() < v.CliffEnd {
		return nil, protoerr.New(protoerr.CodeVestingCliffNotReached,
			"悬崖期至 %d 结束", v.CliffEnd)
	}
	claimable := new(big.Int).Sub(VestedAmount(v, now), v.Claimed)
	if claimable.Sign() <= 0 {
		return nil, protoerr.New(protoerr.CodeVestingExhausted, "当前没有新的可领取额度")
	}
	return claimable, nil
}

// ApplyVestingClaim 落地一次归属领取。不变式：claimed <= 归属总额
func ApplyVestingClaim(v *account.FounderVesting, amount *big.Int) error {
	claimed := new(big.Int).Add(v.Claimed, amount)
	if claimed.Cmp(v.TotalEntitlement) > 0 {
		return protoerr.New(protoerr.CodeVestingExhausted,
			"领取后累计 %s 超出归属总额 %s", claimed, v.TotalEntitlement)
	}
	v.Claimed = claimed
	return nil
}
