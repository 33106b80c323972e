// Package lifecycle 实现项目、里程碑、转型提案、代币分发与归属的
// 状态机校验和转换计算。所有校验失败返回 protoerr 错误；
// 每个转换要么全部不变式成立后一次性落地，要么不产生任何修改。
package lifecycle

import (
	"math/big"
	"time"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/protoerr"
	"github.com/zemyth-app/raise/internal/tier"
)

// 项目状态的合法后继。任何转换不得跳过中间状态
var projectSuccessors = map[account.ProjectState][]account.ProjectState{
	account.ProjectDraft:           {account.ProjectPendingApproval, account.ProjectCancelled},
	account.ProjectPendingApproval: {account.ProjectOpen, account.ProjectCancelled},
	account.ProjectOpen:            {account.ProjectFunded, account.ProjectCancelled, account.ProjectFailed},
	account.ProjectFunded: {account.ProjectInProgress, account.ProjectTGEFailed},
	// 代币生成只发生在 Funded 阶段，TGEFailed 不可从 InProgress 到达；
	// Cancelled 仅限募资完成前，执行期失败走 Failed/Abandoned
	account.ProjectInProgress: {
		account.ProjectCompleted, account.ProjectAbandoned, account.ProjectFailed,
	},
}

// ValidateProjectTransition 校验项目状态转换是否合法
func ValidateProjectTransition(from, to account.ProjectState) error {
	if from.Terminal() {
		return protoerr.New(protoerr.CodeProjectAlreadyTerminal,
			"项目已处于终止状态 %s", from)
	}
	for _, s := range projectSuccessors[from] {
		if s == to {
			return nil
		}
	}
	return protoerr.New(protoerr.CodeInvalidStateTransition,
		"项目不允许从 %s 转换到 %s", from, to)
}

// TransitionProject 校验并落地项目状态转换
func TransitionProject(p *account.Project, to account.ProjectState) error {
	if err := ValidateProjectTransition(p.State, to); err != nil {
		return err
	}
	p.State = to
	return nil
}

// InvestmentOutcome 投资落地后的派生结果
type InvestmentOutcome struct {
	TierIndex        int      // 匹配到的档位序号
	VoteWeight       *big.Int // 投票权重
	TokenAllocation  *big.Int // 代币配额
	CompletedFunding bool     // 本笔投资是否恰好完成募资
}

// ApplyInvestment 校验并落地一笔投资。
// 募资额度与份额消耗由链上串行裁决，这里的落地只用于
// 对最新拉取的状态做预检和本地视图推进，提交前必须重新拉取。
// 当本笔投资使 AmountRaised 达到 FundingGoal 时，项目转入 Funded，
// 首个里程碑应由调用方同步转入 InProgress（同一原子步骤）。
func ApplyInvestment(p *account.Project, amount *big.Int, now time.Time) (*InvestmentOutcome, error) {
	if p.State != account.ProjectOpen {
		return nil, protoerr.New(protoerr.CodeProjectNotOpen,
			"项目状态为 %s，不接受投资", p.State)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, protoerr.New(protoerr.CodeAmountBelowMinimumTier, "投资金额非法")
	}

	idx := tier.FindTierIndex(p.Tiers, amount)
	if idx == tier.NoMatch {
		return nil, protoerr.New(protoerr.CodeAmountBelowMinimumTier,
			"金额 %s 低于最低档位门槛 %s", amount, p.Tiers[0].Amount)
	}
	t := &p.Tiers[idx]
	if t.FilledLots >= t.MaxLots {
		return nil, protoerr.New(protoerr.CodeTierLotsExhausted,
			"第 %d 档名额已满（%d/%d）", idx, t.FilledLots, t.MaxLots)
	}

	// 不变式：amountRaised <= fundingGoal
	raised := new(big.Int).Add(p.AmountRaised, amount)
	if raised.Cmp(p.FundingGoal) > 0 {
		remaining := new(big.Int).Sub(p.FundingGoal, p.AmountRaised)
		return nil, protoerr.New(protoerr.CodeFundingGoalExceeded,
			"金额 %s 超出剩余额度 %s", amount, remaining)
	}

	outcome := &InvestmentOutcome{
		TierIndex:       idx,
		VoteWeight:      tier.VoteWeight(amount, *t),
		TokenAllocation: tier.TokenAllocation(amount, *t),
	}

	t.FilledLots++
	p.AmountRaised = raised
	p.InvestorCount++
	if raised.Cmp(p.FundingGoal) == 0 {
		p.State = account.ProjectFunded
		p.FundedAt = now.Unix()
		outcome.CompletedFunding = true
	}
	return outcome, nil
}

// UnreleasedPercent 统计尚未解锁的里程碑资金比例合计
func UnreleasedPercent(milestones []*account.Milestone) uint64 {
	var sum uint64
	for _, m := range milestones {
		if !m.State.Released() {
			sum += uint64(m.Percentage)
		}
	}
	return sum
}

// RefundShare 计算单个投资人的按比例退款额：
// 未释放托管资金 = floor(amountRaised * 未解锁比例)，
// 退款 = floor(未释放资金 * 投资额 / amountRaised)，两步均截断
func RefundShare(p *account.Project, inv *account.Investment, milestones []*account.Milestone) *big.Int {
	unreleased := tier.PercentageOf(p.AmountRaised, UnreleasedPercent(milestones))
	return tier.ProRataShare(unreleased, inv.Amount, p.AmountRaised)
}

// ValidateAbandonmentRefund 校验弃置后的投资人退款
func ValidateAbandonmentRefund(p *account.Project, inv *account.Investment) error {
	if p.State != account.ProjectAbandoned {
		return protoerr.New(protoerr.CodeRefundNotAvailable,
			"项目状态为 %s，未开放弃置退款", p.State)
	}
	return validateRefundableInvestment(inv)
}

// ValidateExitClaim 校验自愿退出窗口内的退款。
// 连续三次里程碑失败会开启固定时长的退出窗口，
// 窗口内投资人无需等待弃置即可按比例取回未释放资金
func ValidateExitClaim(p *account.Project, inv *account.Investment, now time.Time) error {
	if p.ExitWindowEnd == 0 {
		return protoerr.New(protoerr.CodeRefundNotAvailable, "自愿退出窗口未开启")
	}
	if now.Unix() > p.ExitWindowEnd {
		return protoerr.New(protoerr.CodeExitWindowClosed,
			"自愿退出窗口已于 %d 关闭", p.ExitWindowEnd)
	}
	return validateRefundableInvestment(inv)
}

// validateRefundableInvestment 退款共用的投资标记校验。标记单调，置真后不可逆
func validateRefundableInvestment(inv *account.Investment) error {
	if inv.Refunded {
		return protoerr.New(protoerr.CodeInvestmentAlreadyRefunded, "该笔投资已退款")
	}
	if inv.Withdrawn {
		return protoerr.New(protoerr.CodeInvestmentAlreadyWithdrawn, "该笔投资已撤出")
	}
	return nil
}

// CompleteProject 校验并落地项目完成：所有里程碑均已解锁
func CompleteProject(p *account.Project, milestones []*account.Milestone) error {
	if p.State != account.ProjectInProgress {
		return protoerr.New(protoerr.CodeProjectNotInProgress,
			"项目状态为 %s，无法完成", p.State)
	}
	for _, m := range milestones {
		if !m.State.Released() {
			return protoerr.New(protoerr.CodeInvalidStateTransition,
				"第 %d 个里程碑状态为 %s，尚未解锁", m.Index, m.State)
		}
	}
	p.State = account.ProjectCompleted
	return nil
}
