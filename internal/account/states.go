package account

// ProjectState 项目状态
type ProjectState uint8

const (
	ProjectDraft           ProjectState = iota // 草稿
	ProjectPendingApproval                     // 待审批
	ProjectOpen                                // 募资中
	ProjectFunded                              // 募资完成
	ProjectInProgress                          // 执行中
	ProjectCompleted                           // 已完成
	ProjectAbandoned                           // 已弃置
	ProjectFailed                              // 已失败
	ProjectTGEFailed                           // 代币生成失败
	ProjectCancelled                           // 已取消
)

// String 返回项目状态名
func (s ProjectState) String() string {
	switch s {
	case ProjectDraft:
		return "draft"
	case ProjectPendingApproval:
		return "pending_approval"
	case ProjectOpen:
		return "open"
	case ProjectFunded:
		return "funded"
	case ProjectInProgress:
		return "in_progress"
	case ProjectCompleted:
		return "completed"
	case ProjectAbandoned:
		return "abandoned"
	case ProjectFailed:
		return "failed"
	case ProjectTGEFailed:
		return "tge_failed"
	case ProjectCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal 项目是否处于终止状态
func (s ProjectState) Terminal() bool {
	switch s {
	case ProjectCompleted, ProjectAbandoned, ProjectFailed, ProjectTGEFailed, ProjectCancelled:
		return true
	}
	return false
}

// MilestoneState 里程碑状态
type MilestoneState uint8

const (
	MilestoneProposed    MilestoneState = iota // 已提议
	MilestoneApproved                          // 已批准
	MilestoneInProgress                        // 执行中
	MilestoneUnderReview                       // 评审中
	MilestonePassed                            // 已通过
	MilestoneUnlocked                          // 资金已解锁
	MilestoneFailed                            // 已失败
)

// String 返回里程碑状态名
func (s MilestoneState) String() string {
	switch s {
	case MilestoneProposed:
		return "proposed"
	case MilestoneApproved:
		return "approved"
	case MilestoneInProgress:
		return "in_progress"
	case MilestoneUnderReview:
		return "under_review"
	case MilestonePassed:
		return "passed"
	case MilestoneUnlocked:
		return "unlocked"
	case MilestoneFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Released 里程碑对应的资金份额是否已释放
func (s MilestoneState) Released() bool {
	return s == MilestoneUnlocked
}

// PivotState 转型提案状态，只允许严格向前转换
type PivotState uint8

const (
	PivotPendingModeratorApproval PivotState = iota // 待协调员审批
	PivotApprovedAwaitingWindow                     // 已批准，等待撤出窗口结束
	PivotFinalized                                  // 已定稿
)

// String 返回转型提案状态名
func (s PivotState) String() string {
	switch s {
	case PivotPendingModeratorApproval:
		return "pending_moderator_approval"
	case PivotApprovedAwaitingWindow:
		return "approved_awaiting_investor_window"
	case PivotFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// DistributionState 代币分发进度状态
type DistributionState uint8

const (
	DistributionActive         DistributionState = iota // 分发中
	DistributionCompleted                               // 已完成
	DistributionForceCompleted                          // 管理员强制完成
)

// String 返回分发状态名
func (s DistributionState) String() string {
	switch s {
	case DistributionActive:
		return "active"
	case DistributionCompleted:
		return "completed"
	case DistributionForceCompleted:
		return "force_completed"
	default:
		return "unknown"
	}
}

// VoteChoice 投票选项
type VoteChoice uint8

const (
	VoteGood VoteChoice = iota // 认可里程碑交付
	VoteBad                    // 否决里程碑交付
)

// String 返回投票选项名
func (c VoteChoice) String() string {
	switch c {
	case VoteGood:
		return "good"
	case VoteBad:
		return "bad"
	default:
		return "unknown"
	}
}
