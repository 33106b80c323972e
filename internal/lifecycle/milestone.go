package lifecycle

import (
	"math/big"
	"time"

	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/protoerr"
)

// 连续失败达到该次数时开启自愿退出窗口
const exitWindowFailureThreshold = 3

// SetDeadline 设置里程碑交付截止时间。
// 截止时间必须在未来，且距当前时长落在 [MinDeadline, MaxDeadline] 区间内。
// 弃置判定只对已设置截止时间的里程碑生效
func SetDeadline(m *account.Milestone, deadline time.Time, now time.Time, params Params) error {
	if m.State != account.MilestoneInProgress {
		return protoerr.New(protoerr.CodeMilestoneNotInProgress,
			"里程碑状态为 %s，不能设置截止时间", m.State)
	}
	if !deadline.After(now) {
		return protoerr.New(protoerr.CodeDeadlineOutOfBounds, "截止时间必须在未来")
	}
	span := deadline.Sub(now)
	if span < params.MinDeadline || span > params.MaxDeadline {
		return protoerr.New(protoerr.CodeDeadlineOutOfBounds,
			"截止时长 %s 超出允许范围 [%s, %s]", span, params.MinDeadline, params.MaxDeadline)
	}
	m.Deadline = deadline.Unix()
	return nil
}

// ExtendDeadline 向后延长已有截止时间。
// 只允许在旧截止时间仍在未来时延长，只能向后，单个里程碑最多延长三次
func ExtendDeadline(m *account.Milestone, newDeadline time.Time, now time.Time, params Params) error {
	if m.Deadline == 0 {
		return protoerr.New(protoerr.CodeDeadlineNotSet, "截止时间尚未设置")
	}
	if m.ExtensionCount >= account.MaxExtensions {
		return protoerr.New(protoerr.CodeDeadlineExtensionExhausted,
			"延长次数已达上限 %d", account.MaxExtensions)
	}
	if now.Unix() >= m.Deadline {
		return protoerr.New(protoerr.CodeDeadlineAlreadyPassed, "原截止时间已过，无法延长")
	}
	if newDeadline.Unix() <= m.Deadline {
		return protoerr.New(protoerr.CodeDeadlineNotForward, "新截止时间必须晚于原截止时间")
	}
	if newDeadline.Sub(now) > params.MaxDeadline {
		return protoerr.New(protoerr.CodeDeadlineOutOfBounds,
			"新截止时间超出一年上限")
	}
	m.Deadline = newDeadline.Unix()
	m.ExtensionCount++
	return nil
}

// SubmitMilestone 创始人提交里程碑交付物进入评审。
// 首个里程碑受募资完成后的冷静期约束。提交开启固定时长的投票窗口
func SubmitMilestone(p *account.Project, m *account.Milestone, now time.Time, params Params) error {
	if p.State != account.ProjectInProgress {
		return protoerr.New(protoerr.CodeProjectNotInProgress,
			"项目状态为 %s，不能提交里程碑", p.State)
	}
	if m.State != account.MilestoneInProgress {
		return protoerr.New(protoerr.CodeMilestoneNotInProgress,
			"里程碑状态为 %s，不能提交评审", m.State)
	}
	if m.Index == 0 && m.VotingRound == 0 && p.FundedAt > 0 {
		coolingEnd := time.Unix(p.FundedAt, 0).Add(params.CoolingOff)
		if now.Before(coolingEnd) {
			return protoerr.New(protoerr.CodeCoolingOffNotElapsed,
				"冷静期至 %s 结束", coolingEnd.UTC().Format(time.RFC3339))
		}
	}
	m.State = account.MilestoneUnderReview
	m.SubmittedAt = now.Unix()
	m.VotingEndsAt = now.Add(params.VotingWindow).Unix()
	return nil
}

// ValidateVote 校验一次投票。existing 为该（里程碑，投票人，轮次）
// 已存在的投票账户，不存在时传 nil（账户缺失是良性缺位，不是错误）
func ValidateVote(m *account.Milestone, inv *account.Investment, existing *account.Vote, now time.Time) error {
	if m.State != account.MilestoneUnderReview {
		return protoerr.New(protoerr.CodeMilestoneNotUnderReview,
			"里程碑状态为 %s，不在评审中", m.State)
	}
	if now.Unix() >= m.VotingEndsAt {
		return protoerr.New(protoerr.CodeVotingWindowClosed, "投票窗口已关闭")
	}
	if inv.Refunded || inv.Withdrawn {
		return protoerr.New(protoerr.CodeNotInvestor, "该笔投资已退出，不具有投票权")
	}
	if existing != nil && existing.Round == m.VotingRound {
		return protoerr.New(protoerr.CodeDuplicateVote,
			"第 %d 轮已投过票", m.VotingRound)
	}
	return nil
}

// ApplyVote 将一票计入里程碑的权重统计
func ApplyVote(m *account.Milestone, choice account.VoteChoice, weight *big.Int) {
	if choice == account.VoteGood {
		m.YesVotes = new(big.Int).Add(m.YesVotes, weight)
	} else {
		m.NoVotes = new(big.Int).Add(m.NoVotes, weight)
	}
	m.TotalWeight = new(big.Int).Add(m.TotalWeight, weight)
	m.VoterCount++
}

// FinalizeVoting 投票窗口结束后结算里程碑。
// 通过条件是按权重的严格多数：yesVotes/totalWeight > 50%，
// 即 2*yesVotes > totalWeight；持平或不足50%判为失败。
// 失败会递增项目的连续失败计数，达到三次开启自愿退出窗口
func FinalizeVoting(p *account.Project, m *account.Milestone, now time.Time, params Params) (passed bool, err error) {
	if m.State != account.MilestoneUnderReview {
		return false, protoerr.New(protoerr.CodeMilestoneNotUnderReview,
			"里程碑状态为 %s，不能结算", m.State)
	}
	if now.Unix() < m.VotingEndsAt {
		return false, protoerr.New(protoerr.CodeVotingWindowNotElapsed,
			"投票窗口至 %d 结束", m.VotingEndsAt)
	}

	doubled := new(big.Int).Lsh(m.YesVotes, 1)
	if doubled.Cmp(m.TotalWeight) > 0 {
		m.State = account.MilestonePassed
		p.ConsecutiveFailures = 0
		return true, nil
	}

	m.State = account.MilestoneFailed
	p.ConsecutiveFailures++
	if p.ConsecutiveFailures >= exitWindowFailureThreshold && p.ExitWindowEnd == 0 {
		p.ExitWindowEnd = now.Add(params.ExitWindow).Unix()
	}
	return false, nil
}

// ReworkMilestone 失败的里程碑返工重来。
// 允许无限次返工：清空投票统计和投票人数，递增投票轮次，
// 但不重置项目的连续失败计数
func ReworkMilestone(m *account.Milestone) error {
	if m.State != account.MilestoneFailed {
		return protoerr.New(protoerr.CodeMilestoneNotFailed,
			"里程碑状态为 %s，不能返工", m.State)
	}
	m.State = account.MilestoneInProgress
	m.YesVotes = new(big.Int)
	m.NoVotes = new(big.Int)
	m.TotalWeight = new(big.Int)
	m.VoterCount = 0
	m.VotingRound++
	m.VotingEndsAt = 0
	m.SubmittedAt = 0
	return nil
}

// UnlockMilestone 已通过的里程碑释放资金份额，并推进项目的当前里程碑。
// 这是里程碑的终态之一，之后的里程碑转入执行中
func UnlockMilestone(p *account.Project, m *account.Milestone, next *account.Milestone) error {
	if m.State != account.MilestonePassed {
		return protoerr.New(protoerr.CodeInvalidStateTransition,
			"里程碑状态为 %s，资金不可释放", m.State)
	}
	m.State = account.MilestoneUnlocked
	if next != nil {
		if next.State != account.MilestoneApproved {
			return protoerr.New(protoerr.CodeInvalidStateTransition,
				"后继里程碑状态为 %s，不能进入执行中", next.State)
		}
		next.State = account.MilestoneInProgress
		p.CurrentMilestone = next.Index
	}
	return nil
}

// CheckAbandonment 判定项目是否应转入弃置：
// 当前里程碑已设置截止时间，且截止时间加不活跃超时已过而未提交评审。
// 判定为真时落地弃置转换，开启按比例退款路径
func CheckAbandonment(p *account.Project, m *account.Milestone, now time.Time, params Params) (bool, error) {
	if p.State != account.ProjectInProgress {
		return false, protoerr.New(protoerr.CodeProjectNotInProgress,
			"项目状态为 %s，无弃置判定", p.State)
	}
	if m.State != account.MilestoneInProgress {
		return false, nil
	}
	if m.Deadline == 0 {
		// 未设置截止时间的里程碑不参与弃置判定
		return false, nil
	}
	cutoff := time.Unix(m.Deadline, 0).Add(params.InactivityTimeout)
	if now.Before(cutoff) {
		return false, nil
	}
	p.State = account.ProjectAbandoned
	return true, nil
}
