package lifecycle

import (
	"math/big"
	"time"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/protoerr"
	"github.com/zemyth-app/raise/internal/tier"
)

// ProposePivot 创始人提出项目转型：新的元数据和里程碑集合。
// 项目须在执行中且没有进行中的转型提案；新比例集合须合法
func ProposePivot(p *account.Project, newPercentages []uint8, metadataURI string, now time.Time) (*account.PivotProposal, error) {
	if p.State != account.ProjectInProgress {
		return nil, protoerr.New(protoerr.CodeProjectNotInProgress,
			"项目状态为 %s，不能提出转型", p.State)
	}
	if p.HasActivePivot {
		return nil, protoerr.New(protoerr.CodePivotNotPending, "已存在进行中的转型提案")
	}
	if err := tier.ValidatePercentages(newPercentages); err != nil {
		return nil, protoerr.New(protoerr.CodePivotMilestonesInvalid,
			"转型后的里程碑集合非法: %v", err)
	}

	p.HasActivePivot = true
	return &account.PivotProposal{
		State:           account.PivotPendingModeratorApproval,
		MetadataURI:     metadataURI,
		NewPercentages:  newPercentages,
		ProposedAt:      now.Unix(),
		WithdrawnAmount: new(big.Int),
	}, nil
}

// ApprovePivot 协调员批准转型提案，开启固定时长的投资人撤出窗口。
// 提案状态只向前转换
func ApprovePivot(pv *account.PivotProposal, now time.Time, params Params) error {
	if pv.State != account.PivotPendingModeratorApproval {
		return protoerr.New(protoerr.CodePivotNotPending,
			"提案状态为 %s，不能批准", pv.State)
	}
	pv.State = account.PivotApprovedAwaitingWindow
	pv.ApprovedAt = now.Unix()
	pv.WithdrawWindowEnd = now.Add(params.WithdrawalWindow).Unix()
	return nil
}

// ValidatePivotWithdrawal 校验投资人在撤出窗口内退出。
// 退款额与弃置路径相同：按比例取回未释放资金
func ValidatePivotWithdrawal(pv *account.PivotProposal, inv *account.Investment, now time.Time) error {
	if pv.State != account.PivotApprovedAwaitingWindow {
		return protoerr.New(protoerr.CodePivotNotApproved,
			"提案状态为 %s，撤出窗口未开启", pv.State)
	}
	if now.Unix() > pv.WithdrawWindowEnd {
		return protoerr.New(protoerr.CodePivotWindowClosed,
			"撤出窗口已于 %d 关闭", pv.WithdrawWindowEnd)
	}
	return validateRefundableInvestment(inv)
}

// ApplyPivotWithdrawal 落地一笔撤出：累计撤出金额与人数，置撤出标记。
// 撤出标记单调，之后该笔投资不再具有投票和领取资格
func ApplyPivotWithdrawal(pv *account.PivotProposal, inv *account.Investment, refund *big.Int) {
	inv.Withdrawn = true
	pv.WithdrawnAmount = new(big.Int).Add(pv.WithdrawnAmount, refund)
	pv.WithdrawnCount++
}

// FinalizePivot 撤出窗口结束后定稿转型：替换项目的里程碑集合。
// 新旧里程碑数量相同时原地复用里程碑地址（指令组装层据此决定账户集合）
func FinalizePivot(p *account.Project, pv *account.PivotProposal, now time.Time) error {
	if pv.State != account.PivotApprovedAwaitingWindow {
		return protoerr.New(protoerr.CodePivotNotApproved,
			"提案状态为 %s，不能定稿", pv.State)
	}
	if now.Unix() <= pv.WithdrawWindowEnd {
		return protoerr.New(protoerr.CodePivotWindowStillOpen,
			"撤出窗口至 %d 结束", pv.WithdrawWindowEnd)
	}
	pv.State = account.PivotFinalized
	p.MilestoneCount = uint8(len(pv.NewPercentages))
	p.CurrentMilestone = 0
	p.PivotCount++
	p.HasActivePivot = false
	p.ConsecutiveFailures = 0
	return nil
}
