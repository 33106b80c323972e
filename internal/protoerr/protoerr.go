package protoerr

import (
	"errors"
	"fmt"
)

// Category 错误类别，每个类别占用一段互不重叠的数字区间
type Category string

const (
	CategoryStateTransition Category = "state_transition" // 状态转换错误
	CategoryAuthorization   Category = "authorization"    // 权限错误
	CategoryInvestment      Category = "investment"       // 投资错误
	CategoryMilestone       Category = "milestone"        // 里程碑错误
	CategoryTokenGeneration Category = "token_generation" // 代币生成错误
	CategoryPivot           Category = "pivot"            // 转型错误
	CategoryRefund          Category = "refund"           // 退款错误
	CategoryScamReport      Category = "scam_report"      // 欺诈举报错误
	CategoryUnknown         Category = "unknown"          // 未知类别
)

// 各类别的保留区间。区间划分与链上程序保持一致，不可调整
const (
	codeStateTransitionBase = 6000
	codeAuthorizationBase   = 6100
	codeInvestmentBase      = 6200
	codeMilestoneBase       = 6300
	codeTokenGenBase        = 6400
	codePivotBase           = 6500
	codeRefundBase          = 6600
	codeScamReportBase      = 6700
	codeRangeEnd            = 6800
	codeRangeWidth          = 100
)

// 状态转换类错误码
const (
	CodeInvalidStateTransition = codeStateTransitionBase + iota
	CodeProjectNotOpen
	CodeProjectNotInProgress
	CodeProjectAlreadyTerminal
	CodeMilestoneNotInProgress
	CodeMilestoneNotUnderReview
	CodeMilestoneNotFailed
	CodeDistributionNotActive
	CodeDistributionNotStalled
)

// 权限类错误码
const (
	CodeUnauthorized = codeAuthorizationBase + iota
	CodeNotFounder
	CodeNotInvestor
	CodeNotAdmin
	CodeNotModerator
)

// 投资类错误码
const (
	CodeAmountBelowMinimumTier = codeInvestmentBase + iota
	CodeTierLotsExhausted
	CodeFundingGoalExceeded
	CodeInvestmentAlreadyClaimed
	CodeInvestmentAlreadyRefunded
	CodeInvestmentAlreadyWithdrawn
	CodeInvalidTierList
)

// 里程碑类错误码
const (
	CodeMilestonePercentageInvalid = codeMilestoneBase + iota
	CodeVotingWindowNotElapsed
	CodeVotingWindowClosed
	CodeDuplicateVote
	CodeDeadlineNotSet
	CodeDeadlineOutOfBounds
	CodeDeadlineNotForward
	CodeDeadlineExtensionExhausted
	CodeDeadlineAlreadyPassed
	CodeCoolingOffNotElapsed
)

// 代币生成类错误码
const (
	CodeTokensNotDistributable = codeTokenGenBase + iota
	CodeNothingToClaim
	CodeBatchTooLarge
	CodeVestingCliffNotReached
	CodeVestingExhausted
	CodeTokenomicsAllocationInvalid
)

// 转型类错误码
const (
	CodePivotNotPending = codePivotBase + iota
	CodePivotNotApproved
	CodePivotWindowStillOpen
	CodePivotWindowClosed
	CodePivotMilestonesInvalid
)

// 退款类错误码
const (
	CodeRefundNotAvailable = codeRefundBase + iota
	CodeExitWindowClosed
	CodeNothingToRefund
)

// 欺诈举报类错误码
const (
	CodeScamReportInvalid = codeScamReportBase + iota
	CodeScamReportDuplicate
)

// Error 协议错误，带稳定数字码和人类可读消息
type Error struct {
	Code    int
	Message string
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("[%d/%s] %s", e.Code, e.Category(), e.Message)
}

// Category 根据错误码所在区间返回类别
func (e *Error) Category() Category {
	return CategoryOf(e.Code)
}

// Is 支持 errors.Is 按错误码比较
func (e *Error) Is(target error) bool {
	var pe *Error
	if errors.As(target, &pe) {
		return e.Code == pe.Code
	}
	return false
}

// New 创建协议错误
func New(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CategoryOf 返回错误码所属类别
func CategoryOf(code int) Category {
	if code < codeStateTransitionBase || code >= codeRangeEnd {
		return CategoryUnknown
	}
	switch (code - codeStateTransitionBase) / codeRangeWidth {
	case 0:
		return CategoryStateTransition
	case 1:
		return CategoryAuthorization
	case 2:
		return CategoryInvestment
	case 3:
		return CategoryMilestone
	case 4:
		return CategoryTokenGeneration
	case 5:
		return CategoryPivot
	case 6:
		return CategoryRefund
	case 7:
		return CategoryScamReport
	default:
		return CategoryUnknown
	}
}

// 链上程序返回的已知错误码对应的默认消息
var codeMessages = map[int]string{
	CodeInvalidStateTransition:     "非法的状态转换",
	CodeProjectNotOpen:             "项目未处于募资中状态",
	CodeProjectNotInProgress:       "项目未处于执行中状态",
	CodeProjectAlreadyTerminal:     "项目已进入终止状态",
	CodeMilestoneNotInProgress:     "里程碑未处于执行中状态",
	CodeMilestoneNotUnderReview:    "里程碑未处于评审中状态",
	CodeMilestoneNotFailed:         "里程碑未处于失败状态",
	CodeDistributionNotActive:      "代币分发未在进行中",
	CodeDistributionNotStalled:     "代币分发未达到卡滞阈值",
	CodeUnauthorized:               "无权执行该操作",
	CodeNotFounder:                 "仅项目创始人可执行该操作",
	CodeNotInvestor:                "仅项目投资人可执行该操作",
	CodeNotAdmin:                   "仅管理员可执行该操作",
	CodeNotModerator:               "仅协调员可执行该操作",
	CodeAmountBelowMinimumTier:     "投资金额低于最低档位门槛",
	CodeTierLotsExhausted:          "该档位投资名额已满",
	CodeFundingGoalExceeded:        "投资金额超出剩余募资额度",
	CodeInvestmentAlreadyClaimed:   "该笔投资的代币已领取",
	CodeInvestmentAlreadyRefunded:  "该笔投资已退款",
	CodeInvestmentAlreadyWithdrawn: "该笔投资已撤出",
	CodeInvalidTierList:            "档位列表非法",
	CodeMilestonePercentageInvalid: "里程碑资金比例非法",
	CodeVotingWindowNotElapsed:     "投票窗口尚未结束",
	CodeVotingWindowClosed:         "投票窗口已关闭",
	CodeDuplicateVote:              "该轮次已投过票",
	CodeDeadlineNotSet:             "里程碑截止时间未设置",
	CodeDeadlineOutOfBounds:        "截止时间超出允许范围",
	CodeDeadlineNotForward:         "截止时间只能向后延长",
	CodeDeadlineExtensionExhausted: "截止时间延长次数已用尽",
	CodeDeadlineAlreadyPassed:      "截止时间已过",
	CodeCoolingOffNotElapsed:       "冷静期尚未结束",
	CodeTokensNotDistributable:     "当前状态不允许分发代币",
	CodeNothingToClaim:             "没有可领取的代币",
	CodeBatchTooLarge:              "批量分发数量超出上限",
	CodeVestingCliffNotReached:     "归属悬崖期尚未到达",
	CodeVestingExhausted:           "归属额度已全部领取",
	CodeTokenomicsAllocationInvalid: "代币分配比例非法",
	CodePivotNotPending:            "转型提案未处于待审批状态",
	CodePivotNotApproved:           "转型提案未获批准",
	CodePivotWindowStillOpen:       "投资人撤出窗口尚未结束",
	CodePivotWindowClosed:          "投资人撤出窗口已关闭",
	CodePivotMilestonesInvalid:     "转型后的里程碑集合非法",
	CodeRefundNotAvailable:         "当前状态不允许退款",
	CodeExitWindowClosed:           "自愿退出窗口已关闭",
	CodeNothingToRefund:            "没有可退款的金额",
	CodeScamReportInvalid:          "欺诈举报内容非法",
	CodeScamReportDuplicate:        "已提交过欺诈举报",
}

// FromLedgerCode 将链上程序返回的错误码映射为结构化错误。
// 未知但落在保留区间内的码仍按类别归类，区间外的码归为未知类别。
func FromLedgerCode(code int) *Error {
	if msg, ok := codeMessages[code]; ok {
		return &Error{Code: code, Message: msg}
	}
	return &Error{Code: code, Message: fmt.Sprintf("链上程序返回未知错误码 %d", code)}
}
