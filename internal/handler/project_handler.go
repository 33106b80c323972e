package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zemyth-app/raise/internal/logic"
	"github.com/zemyth-app/raise/internal/model"
	"gorm.io/gorm"
)

// ProjectHandler 项目查询接口，读数据库快照
type ProjectHandler struct {
	projectLogic    *logic.ProjectLogic
	milestoneLogic  *logic.MilestoneLogic
	investmentLogic *logic.InvestmentLogic
	voteLogic       *logic.VoteLogic
	refundLogic     *logic.RefundLogic
	eventLogic      *logic.EventLogic
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{
		projectLogic:    logic.NewProjectLogic(db),
		milestoneLogic:  logic.NewMilestoneLogic(db),
		investmentLogic: logic.NewInvestmentLogic(db),
		voteLogic:       logic.NewVoteLogic(db),
		refundLogic:     logic.NewRefundLogic(db),
		eventLogic:      logic.NewEventLogic(db),
	}
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	state := c.Query("state")
	founder := c.Query("founder")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.projectLogic.GetProjects(state, founder, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"projects":   projects,
		"pagination": Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// GetProject 获取单个项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	project, err := h.projectLogic.GetProject(id)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{"project": project})
}

// GetProjectStats 获取项目统计信息
func (h *ProjectHandler) GetProjectStats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	stats, err := h.projectLogic.GetProjectStats(id)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", stats)
}

// GetProjectMilestones 获取项目里程碑列表
func (h *ProjectHandler) GetProjectMilestones(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	milestones, err := h.milestoneLogic.GetMilestones(id)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{"milestones": milestones})
}

// GetProjectMilestone 获取单个里程碑详情，含当前轮投票
func (h *ProjectHandler) GetProjectMilestone(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的里程碑序号")
		return
	}

	milestone, err := h.milestoneLogic.GetMilestone(id, index)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	votes, err := h.voteLogic.GetVotes(id, index, milestone.VotingRound)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"milestone": milestone,
		"votes":     votes,
	})
}

// GetProjectInvestments 获取项目投资列表
func (h *ProjectHandler) GetProjectInvestments(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	investments, total, err := h.investmentLogic.GetInvestments(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"investments": investments,
		"pagination":  Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// GetProjectInvestment 获取投资人在项目内的投资详情。
// 投资以铸造标识为键，同一投资人可能持有多条
func (h *ProjectHandler) GetProjectInvestment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}
	investor := c.Param("address")

	investments, err := h.investmentLogic.GetInvestorInvestments(id, investor)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{"investments": investments})
}

// GetProjectRefunds 获取项目退款记录
func (h *ProjectHandler) GetProjectRefunds(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	refunds, total, err := h.refundLogic.GetRefunds(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"refunds":    refunds,
		"pagination": Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// GetProjectClaims 获取项目领取记录，可按类型过滤
func (h *ProjectHandler) GetProjectClaims(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	kind := model.ClaimKind(c.Query("kind"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	claims, total, err := h.refundLogic.GetClaims(id, kind, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"claims":     claims,
		"pagination": Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// GetVoterHistory 获取某投资人在项目内的投票历史
func (h *ProjectHandler) GetVoterHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}
	voter := c.Query("voter")
	if voter == "" {
		ErrorResponse(c, http.StatusBadRequest, "缺少投票人地址")
		return
	}

	votes, err := h.voteLogic.GetVoterHistory(id, voter)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{"votes": votes})
}

// GetProjectEvents 获取项目事件流水
func (h *ProjectHandler) GetProjectEvents(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	eventType := c.Query("type")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	events, total, err := h.eventLogic.GetEvents(id, eventType, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"events":     events,
		"pagination": Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// GetInvestorProjects 获取投资人参与的项目
func (h *ProjectHandler) GetInvestorProjects(c *gin.Context) {
	investor := c.Param("address")
	if investor == "" {
		ErrorResponse(c, http.StatusBadRequest, "无效的投资人地址")
		return
	}

	projectIds, err := h.investmentLogic.GetInvestorProjects(investor)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{"projectIds": projectIds})
}
