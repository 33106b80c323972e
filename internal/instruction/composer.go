package instruction

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/pda"
	"github.com/zemyth-app/raise/internal/protoerr"
	"github.com/zemyth-app/raise/internal/tier"
)

func errBatchSize(n int) error {
	return protoerr.New(protoerr.CodeBatchTooLarge,
		"批量分发数量 %d 超出范围 [1, %d]", n, account.MaxBatchSize)
}

// Composer 按当前解码状态为协议动作组装指令。
// 组装使用的计数和序号可能在读取后立即过期（链上并发消耗额度），
// 调用方必须在提交前重新拉取依赖状态，不得沿用本地旧值
type Composer struct {
	programID common.Address
}

// NewComposer 创建指令组装器
func NewComposer(programID common.Address) *Composer {
	return &Composer{programID: programID}
}

// ProgramID 返回目标程序地址
func (c *Composer) ProgramID() common.Address { return c.programID }

func (c *Composer) ix(data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{Program: c.programID, Accounts: accounts, Data: data}
}

func derived(key common.Hash, writable bool) AccountMeta {
	return AccountMeta{Key: key, Writable: writable}
}

func wallet(a common.Address, writable bool) AccountMeta {
	return AccountMeta{Key: WalletKey(a), Signer: true, Writable: writable}
}

// CreateProjectParams 创建项目的入参
type CreateProjectParams struct {
	ProjectID   uint64
	Founder     common.Address
	FundingGoal *big.Int
	Tiers       []account.Tier
	Percentages []uint8
	Tokenomics  *account.Tokenomics
	MetadataURI string
}

// CreateProject 创建项目及其全部子账户。
// 账户顺序：管理配置、项目、托管、金库、代币经济学、各里程碑（按序号）、创始人。
// 档位列表和里程碑比例在组装前本地校验，非法输入在任何网络交互前失败
func (c *Composer) CreateProject(p CreateProjectParams) (*Composed, error) {
	if err := tier.ValidateTiers(p.Tiers, nil); err != nil {
		return nil, err
	}
	if err := tier.ValidatePercentages(p.Percentages); err != nil {
		return nil, err
	}

	pl := newPayload(OpCreateProject).
		u64(p.ProjectID).
		amount(p.FundingGoal).
		u8(uint8(len(p.Tiers)))
	for _, t := range p.Tiers {
		pl.amount(t.Amount).u64(t.MaxLots).u64(t.TokenRatio).u64(t.VoteMultiplier)
	}
	pl.bytes8(p.Percentages)
	if p.Tokenomics != nil {
		pl.u8(1).
			amount(p.Tokenomics.TotalSupply).
			u64(uint64(p.Tokenomics.InvestorBps)).
			u64(uint64(p.Tokenomics.FounderBps)).
			u64(uint64(p.Tokenomics.LiquidityBps)).
			u64(uint64(p.Tokenomics.TreasuryBps)).
			i64(p.Tokenomics.CliffDuration).
			i64(p.Tokenomics.VestingDuration)
	} else {
		pl.u8(0)
	}
	pl.str(p.MetadataURI)
	data, err := pl.done()
	if err != nil {
		return nil, err
	}

	project := pda.ProjectAddress(c.programID, p.ProjectID)
	accounts := []AccountMeta{
		derived(pda.AdminConfigAddress(c.programID), false),
		derived(project, true),
		derived(pda.EscrowAddress(c.programID, p.ProjectID), true),
		derived(pda.VaultAddress(c.programID, project), true),
		derived(pda.TokenomicsAddress(c.programID, project), true),
	}
	for i := range p.Percentages {
		accounts = append(accounts, derived(pda.MilestoneAddress(c.programID, project, uint8(i)), true))
	}
	accounts = append(accounts, wallet(p.Founder, true))

	return &Composed{
		Instructions: []Instruction{c.ix(data, accounts...)},
		Signers:      []common.Address{p.Founder},
	}, nil
}

// SubmitForApproval 创始人提交项目审批。账户顺序：项目、创始人
func (c *Composer) SubmitForApproval(projectID uint64, founder common.Address) *Composed {
	data, _ := newPayload(OpSubmitForApproval).done()
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(pda.ProjectAddress(c.programID, projectID), true),
			wallet(founder, false),
		)},
		Signers: []common.Address{founder},
	}
}

// ApproveProject 管理员批准项目开放募资。账户顺序：管理配置、项目、管理员
func (c *Composer) ApproveProject(projectID uint64, admin common.Address) *Composed {
	data, _ := newPayload(OpApproveProject).done()
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(pda.AdminConfigAddress(c.programID), false),
			derived(pda.ProjectAddress(c.programID, projectID), true),
			wallet(admin, false),
		)},
		Signers: []common.Address{admin},
	}
}

// Invest 投资入场。账户顺序：项目、托管、投资、首个里程碑、投资人。
// 首个里程碑参与进来，使完成募资的那笔投资能在同一原子步骤内
// 把它转入执行中
func (c *Composer) Invest(projectID uint64, investor, mint common.Address, amount *big.Int) (*Composed, error) {
	data, err := newPayload(OpInvest).address(mint).amount(amount).done()
	if err != nil {
		return nil, err
	}
	project := pda.ProjectAddress(c.programID, projectID)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(project, true),
			derived(pda.EscrowAddress(c.programID, projectID), true),
			derived(pda.InvestmentAddress(c.programID, project, mint), true),
			derived(pda.MilestoneAddress(c.programID, project, 0), true),
			wallet(investor, true),
		)},
		Signers: []common.Address{investor},
	}, nil
}

// SetDeadline 设置里程碑截止时间。账户顺序：项目、里程碑、创始人
func (c *Composer) SetDeadline(projectID uint64, index uint8, deadline int64, founder common.Address) *Composed {
	return c.milestoneAction(newPayloadI64(OpSetDeadline, deadline), projectID, index, founder)
}

// ExtendDeadline 延长里程碑截止时间。账户顺序：项目、里程碑、创始人
func (c *Composer) ExtendDeadline(projectID uint64, index uint8, newDeadline int64, founder common.Address) *Composed {
	return c.milestoneAction(newPayloadI64(OpExtendDeadline, newDeadline), projectID, index, founder)
}

// SubmitMilestone 提交里程碑交付物进入评审。账户顺序：项目、里程碑、创始人
func (c *Composer) SubmitMilestone(projectID uint64, index uint8, founder common.Address) *Composed {
	data, _ := newPayload(OpSubmitMilestone).u8(index).done()
	return c.milestoneAction(data, projectID, index, founder)
}

// ReworkMilestone 失败里程碑返工。账户顺序：项目、里程碑、创始人
func (c *Composer) ReworkMilestone(projectID uint64, index uint8, founder common.Address) *Composed {
	data, _ := newPayload(OpReworkMilestone).u8(index).done()
	return c.milestoneAction(data, projectID, index, founder)
}

func newPayloadI64(op uint8, v int64) []byte {
	data, _ := newPayload(op).i64(v).done()
	return data
}

func (c *Composer) milestoneAction(data []byte, projectID uint64, index uint8, signer common.Address) *Composed {
	project := pda.ProjectAddress(c.programID, projectID)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(project, true),
			derived(pda.MilestoneAddress(c.programID, project, index), true),
			wallet(signer, false),
		)},
		Signers: []common.Address{signer},
	}
}

// CastVote 投资人对评审中的里程碑投票。
// 账户顺序：项目、里程碑、投资、投票、投票人。
// 投票账户按（里程碑，投票人，轮次）派生：round 必须来自最新拉取的里程碑
func (c *Composer) CastVote(projectID uint64, index uint8, round uint8, choice account.VoteChoice, voter, mint common.Address) *Composed {
	data, _ := newPayload(OpCastVote).u8(index).u8(round).u8(uint8(choice)).done()
	project := pda.ProjectAddress(c.programID, projectID)
	milestone := pda.MilestoneAddress(c.programID, project, index)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(project, false),
			derived(milestone, true),
			derived(pda.InvestmentAddress(c.programID, project, mint), false),
			derived(pda.VoteAddress(c.programID, milestone, voter, round), true),
			wallet(voter, true),
		)},
		Signers: []common.Address{voter},
	}
}

// FinalizeVoting 投票窗口结束后结算里程碑。账户顺序：项目、里程碑、发起人
func (c *Composer) FinalizeVoting(projectID uint64, index uint8, caller common.Address) *Composed {
	data, _ := newPayload(OpFinalizeVoting).u8(index).done()
	return c.milestoneAction(data, projectID, index, caller)
}

// UnlockMilestone 释放已通过里程碑的资金份额。
// 账户顺序：项目、托管、里程碑、后继里程碑（最后一个里程碑时省略）、
// 分发进度、创始人
func (c *Composer) UnlockMilestone(projectID uint64, index uint8, milestoneCount uint8, founder common.Address) *Composed {
	data, _ := newPayload(OpUnlockMilestone).u8(index).done()
	project := pda.ProjectAddress(c.programID, projectID)
	milestone := pda.MilestoneAddress(c.programID, project, index)
	accounts := []AccountMeta{
		derived(project, true),
		derived(pda.EscrowAddress(c.programID, projectID), true),
		derived(milestone, true),
	}
	if index+1 < milestoneCount {
		accounts = append(accounts, derived(pda.MilestoneAddress(c.programID, project, index+1), true))
	}
	accounts = append(accounts,
		derived(pda.DistributionAddress(c.programID, milestone), true),
		wallet(founder, true),
	)
	return &Composed{
		Instructions: []Instruction{c.ix(data, accounts...)},
		Signers:      []common.Address{founder},
	}
}

// ClaimTokens 投资人自助领取里程碑通过后的代币。
// 账户顺序：项目、里程碑、分发进度、金库、投资、投资人
func (c *Composer) ClaimTokens(projectID uint64, index uint8, investor, mint common.Address) *Composed {
	return c.claimAction(OpClaimTokens, projectID, index, investor, mint)
}

// RecoveryClaim 分发被熔断后投资人补领。账户顺序与 ClaimTokens 一致
func (c *Composer) RecoveryClaim(projectID uint64, index uint8, investor, mint common.Address) *Composed {
	return c.claimAction(OpRecoveryClaim, projectID, index, investor, mint)
}

func (c *Composer) claimAction(op uint8, projectID uint64, index uint8, investor, mint common.Address) *Composed {
	data, _ := newPayload(op).u8(index).done()
	project := pda.ProjectAddress(c.programID, projectID)
	milestone := pda.MilestoneAddress(c.programID, project, index)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(project, false),
			derived(milestone, false),
			derived(pda.DistributionAddress(c.programID, milestone), true),
			derived(pda.VaultAddress(c.programID, project), true),
			derived(pda.InvestmentAddress(c.programID, project, mint), true),
			wallet(investor, true),
		)},
		Signers: []common.Address{investor},
	}
}

// BatchDistribute 旧版批量推送分发，仅为向后兼容保留，单批最多
// account.MaxBatchSize 笔。账户顺序：项目、里程碑、分发进度、金库、
// 各投资账户（按入参顺序）、管理员
func (c *Composer) BatchDistribute(projectID uint64, index uint8, mints []common.Address, admin common.Address) (*Composed, error) {
	if len(mints) == 0 || len(mints) > account.MaxBatchSize {
		return nil, errBatchSize(len(mints))
	}
	data, _ := newPayload(OpBatchDistribute).u8(index).u8(uint8(len(mints))).done()
	project := pda.ProjectAddress(c.programID, projectID)
	milestone := pda.MilestoneAddress(c.programID, project, index)
	accounts := []AccountMeta{
		derived(project, false),
		derived(milestone, false),
		derived(pda.DistributionAddress(c.programID, milestone), true),
		derived(pda.VaultAddress(c.programID, project), true),
	}
	for _, mint := range mints {
		accounts = append(accounts, derived(pda.InvestmentAddress(c.programID, project, mint), true))
	}
	accounts = append(accounts, wallet(admin, true))
	return &Composed{
		Instructions: []Instruction{c.ix(data, accounts...)},
		Signers:      []common.Address{admin},
	}, nil
}

// ForceComplete 管理员熔断卡滞的分发。账户顺序：管理配置、项目、里程碑、
// 分发进度、管理员
func (c *Composer) ForceComplete(projectID uint64, index uint8, admin common.Address) *Composed {
	data, _ := newPayload(OpForceComplete).u8(index).done()
	project := pda.ProjectAddress(c.programID, projectID)
	milestone := pda.MilestoneAddress(c.programID, project, index)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(pda.AdminConfigAddress(c.programID), false),
			derived(project, false),
			derived(milestone, false),
			derived(pda.DistributionAddress(c.programID, milestone), true),
			wallet(admin, false),
		)},
		Signers: []common.Address{admin},
	}
}

// MarkAbandoned 截止时间加不活跃超时已过后标记项目弃置。
// 账户顺序：项目、当前里程碑、发起人
func (c *Composer) MarkAbandoned(projectID uint64, currentIndex uint8, caller common.Address) *Composed {
	data, _ := newPayload(OpMarkAbandoned).u8(currentIndex).done()
	return c.milestoneAction(data, projectID, currentIndex, caller)
}

// ClaimRefund 弃置后投资人按比例取回未释放资金。
// 账户顺序：项目、托管、投资、各里程碑（按序号，程序据此累计未解锁比例）、投资人
func (c *Composer) ClaimRefund(projectID uint64, milestoneCount uint8, investor, mint common.Address) *Composed {
	return c.refundAction(OpClaimRefund, projectID, milestoneCount, investor, mint)
}

// ExitClaim 自愿退出窗口内投资人提前退出。账户顺序与 ClaimRefund 一致
func (c *Composer) ExitClaim(projectID uint64, milestoneCount uint8, investor, mint common.Address) *Composed {
	return c.refundAction(OpExitClaim, projectID, milestoneCount, investor, mint)
}

func (c *Composer) refundAction(op uint8, projectID uint64, milestoneCount uint8, investor, mint common.Address) *Composed {
	data, _ := newPayload(op).done()
	project := pda.ProjectAddress(c.programID, projectID)
	accounts := []AccountMeta{
		derived(project, true),
		derived(pda.EscrowAddress(c.programID, projectID), true),
		derived(pda.InvestmentAddress(c.programID, project, mint), true),
	}
	for i := uint8(0); i < milestoneCount; i++ {
		accounts = append(accounts, derived(pda.MilestoneAddress(c.programID, project, i), false))
	}
	accounts = append(accounts, wallet(investor, true))
	return &Composed{
		Instructions: []Instruction{c.ix(data, accounts...)},
		Signers:      []common.Address{investor},
	}
}

// ProposePivot 创始人提出转型。账户顺序：项目、转型提案、创始人。
// 提案地址按项目当前转型计数派生：计数必须来自最新拉取的项目账户
func (c *Composer) ProposePivot(projectID uint64, pivotCount uint8, percentages []uint8, metadataURI string, founder common.Address) (*Composed, error) {
	if err := tier.ValidatePercentages(percentages); err != nil {
		return nil, err
	}
	data, err := newPayload(OpProposePivot).bytes8(percentages).str(metadataURI).done()
	if err != nil {
		return nil, err
	}
	project := pda.ProjectAddress(c.programID, projectID)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(project, true),
			derived(pda.PivotAddress(c.programID, project, pivotCount), true),
			wallet(founder, true),
		)},
		Signers: []common.Address{founder},
	}, nil
}

// ApprovePivot 协调员批准转型。账户顺序：管理配置、项目、转型提案、协调员
func (c *Composer) ApprovePivot(projectID uint64, pivotCount uint8, moderator common.Address) *Composed {
	data, _ := newPayload(OpApprovePivot).done()
	project := pda.ProjectAddress(c.programID, projectID)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(pda.AdminConfigAddress(c.programID), false),
			derived(project, true),
			derived(pda.PivotAddress(c.programID, project, pivotCount), true),
			wallet(moderator, false),
		)},
		Signers: []common.Address{moderator},
	}
}

// PivotWithdraw 撤出窗口内投资人退出。账户顺序：项目、托管、转型提案、
// 投资、各里程碑（按序号）、投资人
func (c *Composer) PivotWithdraw(projectID uint64, pivotCount uint8, milestoneCount uint8, investor, mint common.Address) *Composed {
	data, _ := newPayload(OpPivotWithdraw).done()
	project := pda.ProjectAddress(c.programID, projectID)
	accounts := []AccountMeta{
		derived(project, true),
		derived(pda.EscrowAddress(c.programID, projectID), true),
		derived(pda.PivotAddress(c.programID, project, pivotCount), true),
		derived(pda.InvestmentAddress(c.programID, project, mint), true),
	}
	for i := uint8(0); i < milestoneCount; i++ {
		accounts = append(accounts, derived(pda.MilestoneAddress(c.programID, project, i), false))
	}
	accounts = append(accounts, wallet(investor, true))
	return &Composed{
		Instructions: []Instruction{c.ix(data, accounts...)},
		Signers:      []common.Address{investor},
	}
}

// FinalizePivot 撤出窗口结束后定稿转型，替换里程碑集合。
// 账户顺序：项目、转型提案、新里程碑集合（按序号）、创始人。
// 新旧数量相同时里程碑地址原地复用，数量不同时按新序号重新派生
func (c *Composer) FinalizePivot(projectID uint64, pivotCount uint8, newCount uint8, founder common.Address) *Composed {
	data, _ := newPayload(OpFinalizePivot).u8(newCount).done()
	project := pda.ProjectAddress(c.programID, projectID)
	accounts := []AccountMeta{
		derived(project, true),
		derived(pda.PivotAddress(c.programID, project, pivotCount), true),
	}
	for i := uint8(0); i < newCount; i++ {
		accounts = append(accounts, derived(pda.MilestoneAddress(c.programID, project, i), true))
	}
	accounts = append(accounts, wallet(founder, true))
	return &Composed{
		Instructions: []Instruction{c.ix(data, accounts...)},
		Signers:      []common.Address{founder},
	}
}

// CompleteProject 所有里程碑解锁后完成项目。
// 账户顺序：项目、各里程碑（按序号）、创始人
func (c *Composer) CompleteProject(projectID uint64, milestoneCount uint8, founder common.Address) *Composed {
	data, _ := newPayload(OpCompleteProject).done()
	project := pda.ProjectAddress(c.programID, projectID)
	accounts := []AccountMeta{derived(project, true)}
	for i := uint8(0); i < milestoneCount; i++ {
		accounts = append(accounts, derived(pda.MilestoneAddress(c.programID, project, i), false))
	}
	accounts = append(accounts, wallet(founder, true))
	return &Composed{
		Instructions: []Instruction{c.ix(data, accounts...)},
		Signers:      []common.Address{founder},
	}
}

// InitVesting 项目完成事件触发创始人归属初始化。
// 账户顺序：项目、代币经济学、归属、创始人
func (c *Composer) InitVesting(projectID uint64, founder common.Address) *Composed {
	data, _ := newPayload(OpInitVesting).done()
	project := pda.ProjectAddress(c.programID, projectID)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(project, false),
			derived(pda.TokenomicsAddress(c.programID, project), false),
			derived(pda.FounderVestingAddress(c.programID, project), true),
			wallet(founder, true),
		)},
		Signers: []common.Address{founder},
	}
}

// ClaimVesting 创始人领取已归属代币。账户顺序：项目、归属、金库、创始人
func (c *Composer) ClaimVesting(projectID uint64, founder common.Address) *Composed {
	data, _ := newPayload(OpClaimVesting).done()
	project := pda.ProjectAddress(c.programID, projectID)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(project, false),
			derived(pda.FounderVestingAddress(c.programID, project), true),
			derived(pda.VaultAddress(c.programID, project), true),
			wallet(founder, true),
		)},
		Signers: []common.Address{founder},
	}
}

// ReportScam 投资人提交欺诈举报。账户顺序：管理配置、项目、投资、举报人
func (c *Composer) ReportScam(projectID uint64, reporter, mint common.Address, detailURI string) (*Composed, error) {
	data, err := newPayload(OpReportScam).str(detailURI).done()
	if err != nil {
		return nil, err
	}
	project := pda.ProjectAddress(c.programID, projectID)
	return &Composed{
		Instructions: []Instruction{c.ix(data,
			derived(pda.AdminConfigAddress(c.programID), false),
			derived(project, true),
			derived(pda.InvestmentAddress(c.programID, project, mint), false),
			wallet(reporter, true),
		)},
		Signers: []common.Address{reporter},
	}, nil
}
