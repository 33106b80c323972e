package account

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 账户判别标签。标签是账户字节流的首字节，解码器据此选择记录类型。
// 标签值与链上程序保持一致，不可调整。
const (
	TagProject        uint8 = 1
	TagMilestone      uint8 = 2
	TagInvestment     uint8 = 3
	TagVote           uint8 = 4
	TagTokenomics     uint8 = 5
	TagPivotProposal  uint8 = 6
	TagFounderVesting uint8 = 7
	TagDistribution   uint8 = 8
	TagAdminConfig    uint8 = 9
)

// 协议常量
const (
	MaxTiers          = 10    // 单个项目最多档位数
	MinVoteMultiplier = 100   // 档位投票乘数下限（基点）
	BpsDenominator    = 10000 // 基点分母
	MaxExtensions     = 3     // 单个里程碑最多延期次数
	MaxBatchSize      = 10    // 旧版批量分发单批上限
)

// Record 可解码的账户记录
type Record interface {
	// Tag 返回账户判别标签
	Tag() uint8
}

// Tier 投资档位。档位列表按单份金额升序排列
type Tier struct {
	Amount         *big.Int // 单份投资金额
	MaxLots        uint64   // 最大份数
	FilledLots     uint64   // 已认购份数
	TokenRatio     uint64   // 每单位投资的代币配比
	VoteMultiplier uint64   // 投票权乘数（基点，下限100）
}

// Project 项目账户
type Project struct {
	ID                  uint64         // 全局项目ID
	Founder             common.Address // 创始人地址
	FundingGoal         *big.Int       // 募资目标
	AmountRaised        *big.Int       // 已募资金额，不超过目标
	State               ProjectState   // 项目状态
	Tiers               []Tier         // 档位列表（1-10个，按金额升序）
	MilestoneCount      uint8          // 里程碑数量
	CurrentMilestone    uint8          // 当前执行中的里程碑序号
	PivotCount          uint8          // 历史转型提案计数
	HasActivePivot      bool           // 是否存在进行中的转型提案
	ConsecutiveFailures uint8          // 连续里程碑失败计数，仅由返工重置以外的路径递增
	InvestorCount       uint64         // 投资人数量
	ExitWindowEnd       int64          // 自愿退出窗口截止时间（unix秒，0表示未开启）
	FundedAt            int64          // 募资完成时间（unix秒，0表示未完成）
	CreatedAt           int64          // 创建时间（unix秒）
	MetadataURI         string         // 项目元数据URI
}

// Tag 实现 Record 接口
func (*Project) Tag() uint8 { return TagProject }

// Milestone 里程碑账户。创建后只做有界的原地状态转换，从不删除
type Milestone struct {
	ProjectAddr    common.Hash    // 所属项目账户地址
	Index          uint8          // 里程碑序号
	Percentage     uint8          // 占项目资金比例（0<p<=100，项目内合计100）
	State          MilestoneState // 里程碑状态
	YesVotes       *big.Int       // 赞成票权重合计
	NoVotes        *big.Int       // 反对票权重合计
	TotalWeight    *big.Int       // 参与投票权重合计
	VoterCount     uint64         // 参与投票人数
	VotingRound    uint8          // 投票轮次，返工后递增
	VotingEndsAt   int64          // 投票窗口截止时间（unix秒，0表示未开始）
	Deadline       int64          // 交付截止时间（unix秒，0表示未设置）
	ExtensionCount uint8          // 已延期次数，不超过3
	SubmittedAt    int64          // 最近一次提交评审时间（unix秒）
}

// Tag 实现 Record 接口
func (*Milestone) Tag() uint8 { return TagMilestone }

// Investment 投资账户，与NFT铸造标识一一绑定。
// 三个标记均单调：一旦置真，永不回退
type Investment struct {
	ProjectAddr     common.Hash    // 所属项目账户地址
	Investor        common.Address // 投资人地址
	Mint            common.Address // NFT铸造标识地址
	Amount          *big.Int       // 投资金额
	VoteWeight      *big.Int       // 投票权重
	TokenAllocation *big.Int       // 代币配额
	TierIndex       uint8          // 匹配到的档位序号
	Timestamp       int64          // 投资时间（unix秒）
	Claimed         bool           // 代币已领取
	Withdrawn       bool           // 已在转型窗口撤出
	Refunded        bool           // 已退款
}

// Tag 实现 Record 接口
func (*Investment) Tag() uint8 { return TagInvestment }

// Vote 投票账户，按（里程碑，投票人，轮次）唯一
type Vote struct {
	MilestoneAddr common.Hash    // 所属里程碑账户地址
	Voter         common.Address // 投票人地址
	Choice        VoteChoice     // 投票选项
	Weight        *big.Int       // 投票权重
	Round         uint8          // 投票轮次
	Timestamp     int64          // 投票时间（unix秒）
}

// Tag 实现 Record 接口
func (*Vote) Tag() uint8 { return TagVote }

// Tokenomics 代币经济学账户。各分配比例合计不超过10000基点
type Tokenomics struct {
	ProjectAddr     common.Hash // 所属项目账户地址
	TotalSupply     *big.Int    // 代币总量
	InvestorBps     uint16      // 投资人分配（基点）
	FounderBps      uint16      // 创始人分配（基点）
	LiquidityBps    uint16      // 流动性分配（基点）
	TreasuryBps     uint16      // 国库分配（基点）
	CliffDuration   int64       // 悬崖期时长（秒）
	VestingDuration int64       // 归属期时长（秒）
}

// Tag 实现 Record 接口
func (*Tokenomics) Tag() uint8 { return TagTokenomics }

// AllocationValid 分配比例合计是否不超过10000基点
func (t *Tokenomics) AllocationValid() bool {
	sum := uint32(t.InvestorBps) + uint32(t.FounderBps) + uint32(t.LiquidityBps) + uint32(t.TreasuryBps)
	return sum <= BpsDenominator
}

// PivotProposal 转型提案账户
type PivotProposal struct {
	ProjectAddr       common.Hash // 所属项目账户地址
	State             PivotState  // 提案状态，只向前转换
	MetadataURI       string      // 新项目元数据URI
	NewPercentages    []uint8     // 新里程碑资金比例集合，合计须为100
	ProposedAt        int64       // 提案时间（unix秒）
	ApprovedAt        int64       // 批准时间（unix秒，0表示未批准）
	WithdrawWindowEnd int64       // 投资人撤出窗口截止时间（unix秒）
	WithdrawnAmount   *big.Int    // 窗口内累计撤出金额
	WithdrawnCount    uint64      // 窗口内撤出投资人数量
}

// Tag 实现 Record 接口
func (*PivotProposal) Tag() uint8 { return TagPivotProposal }

// FounderVesting 创始人归属账户，项目完成后初始化
type FounderVesting struct {
	ProjectAddr      common.Hash // 所属项目账户地址
	TotalEntitlement *big.Int    // 归属总额
	CliffEnd         int64       // 悬崖期截止时间（unix秒）
	VestingEnd       int64       // 归属期截止时间（unix秒）
	Claimed          *big.Int    // 已领取金额，不超过归属总额
}

// Tag 实现 Record 接口
func (*FounderVesting) Tag() uint8 { return TagFounderVesting }

// Distribution 代币分发进度账户，对应单个已通过里程碑
type Distribution struct {
	MilestoneAddr    common.Hash       // 所属里程碑账户地址
	State            DistributionState // 分发状态
	TotalInvestors   uint64            // 应分发投资人总数
	DistributedCount uint64            // 已分发投资人数量
	StartedAt        int64             // 分发开始时间（unix秒）
	UpdatedAt        int64             // 最近一次分发进展时间（unix秒）
	ForceCompletedAt int64             // 强制完成时间（unix秒，0表示未强制完成）
}

// Tag 实现 Record 接口
func (*Distribution) Tag() uint8 { return TagDistribution }

// AdminConfig 管理员配置账户，全局唯一
type AdminConfig struct {
	Admin     common.Address // 管理员地址
	Moderator common.Address // 协调员地址
	Paused    bool           // 协议是否暂停
}

// Tag 实现 Record 接口
func (*AdminConfig) Tag() uint8 { return TagAdminConfig }
