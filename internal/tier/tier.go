// Package tier 实现档位匹配与比例核算。
// 所有计算使用整数算术并向零截断，与链上程序逐位一致，绝不四舍五入。
package tier

import (
	"math/big"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/protoerr"
)

// NoMatch FindTierIndex 在金额低于所有档位门槛时的返回值
const NoMatch = -1

// FindTierIndex 返回满足 amount >= tiers[i].Amount 的最高档位序号。
// 档位列表按单份金额升序排列，匹配是门槛匹配而非精确分桶：
// 必须从最高档位向下扫描，返回第一个（即最高的）符合条件的序号；
// 金额低于最低档位门槛时返回 NoMatch。
func FindTierIndex(tiers []account.Tier, amount *big.Int) int {
	if amount == nil {
		return NoMatch
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if amount.Cmp(tiers[i].Amount) >= 0 {
			return i
		}
	}
	return NoMatch
}

// ValidateTiers 校验档位列表：非空、不超过上限、按金额升序、
// 金额不低于协议最低值、投票乘数不低于下限。
func ValidateTiers(tiers []account.Tier, minAmount *big.Int) error {
	if len(tiers) == 0 || len(tiers) > account.MaxTiers {
		return protoerr.New(protoerr.CodeInvalidTierList,
			"档位数量须在 1-%d 之间，实际 %d", account.MaxTiers, len(tiers))
	}
	for i, t := range tiers {
		if t.Amount == nil || t.Amount.Sign() <= 0 {
			return protoerr.New(protoerr.CodeInvalidTierList, "第 %d 档金额非法", i)
		}
		if minAmount != nil && t.Amount.Cmp(minAmount) < 0 {
			return protoerr.New(protoerr.CodeInvalidTierList,
				"第 %d 档金额 %s 低于协议最低值 %s", i, t.Amount, minAmount)
		}
		if i > 0 && t.Amount.Cmp(tiers[i-1].Amount) <= 0 {
			return protoerr.New(protoerr.CodeInvalidTierList, "档位金额须严格升序")
		}
		if t.VoteMultiplier < account.MinVoteMultiplier {
			return protoerr.New(protoerr.CodeInvalidTierList,
				"第 %d 档投票乘数 %d 低于下限 %d", i, t.VoteMultiplier, account.MinVoteMultiplier)
		}
		if t.MaxLots == 0 {
			return protoerr.New(protoerr.CodeInvalidTierList, "第 %d 档最大份数不能为零", i)
		}
	}
	return nil
}

// VoteWeight 计算投资的投票权重：amount * 乘数 / 100，向零截断
func VoteWeight(amount *big.Int, t account.Tier) *big.Int {
	w := new(big.Int).Mul(amount, new(big.Int).SetUint64(t.VoteMultiplier))
	return w.Quo(w, big.NewInt(100))
}

// TokenAllocation 计算投资的代币配额：amount * 代币配比
func TokenAllocation(amount *big.Int, t account.Tier) *big.Int {
	return new(big.Int).Mul(amount, new(big.Int).SetUint64(t.TokenRatio))
}

// PercentToBps 百分比转基点：floor(p * 10000)
func PercentToBps(p uint64) uint64 {
	return p * account.BpsDenominator
}

// BpsToPercent 基点转百分比，向零截断
func BpsToPercent(b uint64) uint64 {
	return b / account.BpsDenominator
}

// PercentageOf 按百分比取金额份额：floor(amount * floor(pct*100) / 10000)，
// 两步均截断
func PercentageOf(amount *big.Int, pct uint64) *big.Int {
	v := new(big.Int).Mul(amount, new(big.Int).SetUint64(pct*100))
	return v.Quo(v, big.NewInt(account.BpsDenominator))
}

// ProRataShare 按 部分/总量 的比例取金额份额：floor(amount * part / total)。
// total 为零时返回零
func ProRataShare(amount, part, total *big.Int) *big.Int {
	if total == nil || total.Sign() == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(amount, part)
	return v.Quo(v, total)
}

// ValidatePercentages 校验里程碑资金比例集合：每项在 (0,100] 之间，合计恰为100
func ValidatePercentages(percentages []uint8) error {
	if len(percentages) == 0 {
		return protoerr.New(protoerr.CodeMilestonePercentageInvalid, "里程碑比例集合为空")
	}
	sum := 0
	for i, p := range percentages {
		if p == 0 || p > 100 {
			return protoerr.New(protoerr.CodeMilestonePercentageInvalid,
				"第 %d 个里程碑比例 %d 超出 (0,100] 范围", i, p)
		}
		sum += int(p)
	}
	if sum != 100 {
		return protoerr.New(protoerr.CodeMilestonePercentageInvalid,
			"里程碑比例合计须为 100，实际 %d", sum)
	}
	return nil
}
