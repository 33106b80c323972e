package handler

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/instruction"
	"github.com/zemyth-app/raise/internal/logic"
	"github.com/zemyth-app/raise/internal/protoerr"
)

// ActionHandler 链上动作接口。每个端点经由动作编排层
// 校验并提交指令，返回交易哈希
type ActionHandler struct {
	actionLogic *logic.ActionLogic
}

func NewActionHandler(actionLogic *logic.ActionLogic) *ActionHandler {
	return &ActionHandler{actionLogic: actionLogic}
}

// CreateProject 创建项目
func (h *ActionHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	goal, ok := parseAmount(req.FundingGoal)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的募资目标")
		return
	}
	supply, ok := parseAmount(req.Tokenomics.TotalSupply)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的代币总量")
		return
	}

	tiers := make([]account.Tier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		amount, ok := parseAmount(t.Amount)
		if !ok {
			ErrorResponse(c, http.StatusBadRequest, "无效的档位金额")
			return
		}
		tiers = append(tiers, account.Tier{
			Amount:         amount,
			MaxLots:        t.MaxLots,
			TokenRatio:     t.TokenRatio,
			VoteMultiplier: t.VoteMultiplier,
		})
	}

	txHash, err := h.actionLogic.CreateProject(c.Request.Context(), instruction.CreateProjectParams{
		ProjectID:   req.ProjectId,
		Founder:     common.HexToAddress(req.Founder),
		FundingGoal: goal,
		Tiers:       tiers,
		Percentages: req.Percentages,
		Tokenomics: &account.Tokenomics{
			TotalSupply:     supply,
			InvestorBps:     req.Tokenomics.InvestorBps,
			FounderBps:      req.Tokenomics.FounderBps,
			LiquidityBps:    req.Tokenomics.LiquidityBps,
			TreasuryBps:     req.Tokenomics.TreasuryBps,
			CliffDuration:   req.Tokenomics.CliffDuration,
			VestingDuration: req.Tokenomics.VestingDuration,
		},
		MetadataURI: req.MetadataURI,
	})
	h.respond(c, txHash, err)
}

// SubmitForApproval 提交审核
func (h *ActionHandler) SubmitForApproval(c *gin.Context) {
	h.signerAction(c, h.actionLogic.SubmitForApproval)
}

// ApproveProject 审核通过
func (h *ActionHandler) ApproveProject(c *gin.Context) {
	h.signerAction(c, h.actionLogic.ApproveProject)
}

// Invest 投资项目
func (h *ActionHandler) Invest(c *gin.Context) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, okAmount := parseAmount(req.Amount)
	if !okAmount {
		ErrorResponse(c, http.StatusBadRequest, "无效的投资金额")
		return
	}

	txHash, err := h.actionLogic.Invest(c.Request.Context(), projectId,
		common.HexToAddress(req.Investor), common.HexToAddress(req.Mint), amount)
	h.respond(c, txHash, err)
}

// SetDeadline 设置里程碑截止时间
func (h *ActionHandler) SetDeadline(c *gin.Context) {
	h.deadlineAction(c, h.actionLogic.SetDeadline)
}

// ExtendDeadline 延长里程碑截止时间
func (h *ActionHandler) ExtendDeadline(c *gin.Context) {
	h.deadlineAction(c, h.actionLogic.ExtendDeadline)
}

// SubmitMilestone 提交里程碑评审
func (h *ActionHandler) SubmitMilestone(c *gin.Context) {
	h.milestoneSignerAction(c, h.actionLogic.SubmitMilestone)
}

// ReworkMilestone 里程碑返工
func (h *ActionHandler) ReworkMilestone(c *gin.Context) {
	h.milestoneSignerAction(c, h.actionLogic.ReworkMilestone)
}

// FinalizeVoting 结算投票
func (h *ActionHandler) FinalizeVoting(c *gin.Context) {
	h.milestoneSignerAction(c, h.actionLogic.FinalizeVoting)
}

// UnlockMilestone 解锁里程碑
func (h *ActionHandler) UnlockMilestone(c *gin.Context) {
	h.milestoneSignerAction(c, h.actionLogic.UnlockMilestone)
}

// CastVote 里程碑投票
func (h *ActionHandler) CastVote(c *gin.Context) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	index, ok := h.milestoneIndex(c)
	if !ok {
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var choice account.VoteChoice
	switch req.Choice {
	case "good":
		choice = account.VoteGood
	case "bad":
		choice = account.VoteBad
	default:
		ErrorResponse(c, http.StatusBadRequest, "无效的投票选项")
		return
	}

	txHash, err := h.actionLogic.CastVote(c.Request.Context(), projectId, index,
		choice, common.HexToAddress(req.Voter), common.HexToAddress(req.Mint))
	h.respond(c, txHash, err)
}

// ClaimTokens 领取代币
func (h *ActionHandler) ClaimTokens(c *gin.Context) {
	h.milestoneClaimAction(c, h.actionLogic.ClaimTokens)
}

// RecoveryClaim 强制完成后补领
func (h *ActionHandler) RecoveryClaim(c *gin.Context) {
	h.milestoneClaimAction(c, h.actionLogic.RecoveryClaim)
}

// BatchDistribute 批量分发
func (h *ActionHandler) BatchDistribute(c *gin.Context) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	index, ok := h.milestoneIndex(c)
	if !ok {
		return
	}
	var req BatchDistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	mints := make([]common.Address, 0, len(req.Mints))
	for _, m := range req.Mints {
		mints = append(mints, common.HexToAddress(m))
	}

	txHash, err := h.actionLogic.BatchDistribute(c.Request.Context(), projectId, index,
		mints, common.HexToAddress(req.Admin))
	h.respond(c, txHash, err)
}

// ForceComplete 配给熔断
func (h *ActionHandler) ForceComplete(c *gin.Context) {
	h.milestoneSignerAction(c, h.actionLogic.ForceComplete)
}

// MarkAbandoned 标记项目废弃
func (h *ActionHandler) MarkAbandoned(c *gin.Context) {
	h.signerAction(c, h.actionLogic.MarkAbandoned)
}

// ClaimRefund 废弃退款
func (h *ActionHandler) ClaimRefund(c *gin.Context) {
	h.claimAction(c, h.actionLogic.ClaimRefund)
}

// ExitClaim 退出窗口退款
func (h *ActionHandler) ExitClaim(c *gin.Context) {
	h.claimAction(c, h.actionLogic.ExitClaim)
}

// PivotWithdraw 转向窗口撤资
func (h *ActionHandler) PivotWithdraw(c *gin.Context) {
	h.claimAction(c, h.actionLogic.PivotWithdraw)
}

// ProposePivot 发起转向提案
func (h *ActionHandler) ProposePivot(c *gin.Context) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	var req ProposePivotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txHash, err := h.actionLogic.ProposePivot(c.Request.Context(), projectId,
		req.Percentages, req.MetadataURI, common.HexToAddress(req.Founder))
	h.respond(c, txHash, err)
}

// ApprovePivot 批准转向提案
func (h *ActionHandler) ApprovePivot(c *gin.Context) {
	h.signerAction(c, h.actionLogic.ApprovePivot)
}

// FinalizePivot 落定转向
func (h *ActionHandler) FinalizePivot(c *gin.Context) {
	h.signerAction(c, h.actionLogic.FinalizePivot)
}

// CompleteProject 完成项目
func (h *ActionHandler) CompleteProject(c *gin.Context) {
	h.signerAction(c, h.actionLogic.CompleteProject)
}

// InitVesting 初始化创始人归属
func (h *ActionHandler) InitVesting(c *gin.Context) {
	h.signerAction(c, h.actionLogic.InitVesting)
}

// ClaimVesting 领取归属份额
func (h *ActionHandler) ClaimVesting(c *gin.Context) {
	h.signerAction(c, h.actionLogic.ClaimVesting)
}

// ReportScam 欺诈举报
func (h *ActionHandler) ReportScam(c *gin.Context) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	var req ReportScamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txHash, err := h.actionLogic.ReportScam(c.Request.Context(), projectId,
		common.HexToAddress(req.Reporter), common.HexToAddress(req.Mint), req.DetailURI)
	h.respond(c, txHash, err)
}

// signerAction 仅需项目ID与签名人的动作
func (h *ActionHandler) signerAction(c *gin.Context, fn func(ctx context.Context, projectId uint64, signer common.Address) (common.Hash, error)) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	var req SignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txHash, err := fn(c.Request.Context(), projectId, common.HexToAddress(req.Signer))
	h.respond(c, txHash, err)
}

// milestoneSignerAction 需要里程碑序号与签名人的动作
func (h *ActionHandler) milestoneSignerAction(c *gin.Context, fn func(ctx context.Context, projectId uint64, index uint8, signer common.Address) (common.Hash, error)) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	index, ok := h.milestoneIndex(c)
	if !ok {
		return
	}
	var req SignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txHash, err := fn(c.Request.Context(), projectId, index, common.HexToAddress(req.Signer))
	h.respond(c, txHash, err)
}

// milestoneClaimAction 需要里程碑序号与投资人的领取动作
func (h *ActionHandler) milestoneClaimAction(c *gin.Context, fn func(ctx context.Context, projectId uint64, index uint8, investor, mint common.Address) (common.Hash, error)) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	index, ok := h.milestoneIndex(c)
	if !ok {
		return
	}
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txHash, err := fn(c.Request.Context(), projectId, index,
		common.HexToAddress(req.Investor), common.HexToAddress(req.Mint))
	h.respond(c, txHash, err)
}

// claimAction 项目级的领取/退款动作
func (h *ActionHandler) claimAction(c *gin.Context, fn func(ctx context.Context, projectId uint64, investor, mint common.Address) (common.Hash, error)) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txHash, err := fn(c.Request.Context(), projectId,
		common.HexToAddress(req.Investor), common.HexToAddress(req.Mint))
	h.respond(c, txHash, err)
}

// deadlineAction 截止时间类动作
func (h *ActionHandler) deadlineAction(c *gin.Context, fn func(ctx context.Context, projectId uint64, index uint8, deadline time.Time, founder common.Address) (common.Hash, error)) {
	projectId, ok := h.projectId(c)
	if !ok {
		return
	}
	index, ok := h.milestoneIndex(c)
	if !ok {
		return
	}
	var req DeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txHash, err := fn(c.Request.Context(), projectId, index,
		time.Unix(req.Deadline, 0), common.HexToAddress(req.Founder))
	h.respond(c, txHash, err)
}

// respond 统一处理动作结果。协议错误带错误码返回422
func (h *ActionHandler) respond(c *gin.Context, txHash common.Hash, err error) {
	if err != nil {
		var perr *protoerr.Error
		if errors.As(err, &perr) {
			RevertResponse(c, perr)
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", TxResponse{TxHash: txHash.Hex()})
}

func (h *ActionHandler) projectId(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return 0, false
	}
	return id, true
}

func (h *ActionHandler) milestoneIndex(c *gin.Context) (uint8, bool) {
	index, err := strconv.ParseUint(c.Param("index"), 10, 8)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的里程碑序号")
		return 0, false
	}
	return uint8(index), true
}

// parseAmount 解析十进制金额字符串，拒绝负数
func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}
