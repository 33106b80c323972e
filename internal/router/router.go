package router

import (
	"github.com/gin-gonic/gin"
	"github.com/zemyth-app/raise/internal/handler"
	"github.com/zemyth-app/raise/internal/ledger"
	"github.com/zemyth-app/raise/internal/logic"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, actionLogic *logic.ActionLogic, client *ledger.Client) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "raise-service",
		})
	})

	projectHandler := handler.NewProjectHandler(db)
	actionHandler := handler.NewActionHandler(actionLogic)
	transactionHandler := handler.NewTransactionHandler(client)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 快照查询路由
		projects := v1.Group("/projects")
		{
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/stats", projectHandler.GetProjectStats)
			projects.GET("/:id/milestones", projectHandler.GetProjectMilestones)
			projects.GET("/:id/milestones/:index", projectHandler.GetProjectMilestone)
			projects.GET("/:id/investments", projectHandler.GetProjectInvestments)
			projects.GET("/:id/investments/:address", projectHandler.GetProjectInvestment)
			projects.GET("/:id/refunds", projectHandler.GetProjectRefunds)
			projects.GET("/:id/claims", projectHandler.GetProjectClaims)
			projects.GET("/:id/votes", projectHandler.GetVoterHistory)
			projects.GET("/:id/events", projectHandler.GetProjectEvents)
		}
		v1.GET("/investors/:address/projects", projectHandler.GetInvestorProjects)
		v1.GET("/transactions/:hash", transactionHandler.GetTransactionStatus)

		// 链上动作路由，返回交易哈希
		actions := v1.Group("/actions")
		{
			actions.POST("/projects", actionHandler.CreateProject)
			actions.POST("/projects/:id/submit", actionHandler.SubmitForApproval)
			actions.POST("/projects/:id/approve", actionHandler.ApproveProject)
			actions.POST("/projects/:id/invest", actionHandler.Invest)
			actions.POST("/projects/:id/abandon", actionHandler.MarkAbandoned)
			actions.POST("/projects/:id/refund", actionHandler.ClaimRefund)
			actions.POST("/projects/:id/exit", actionHandler.ExitClaim)
			actions.POST("/projects/:id/complete", actionHandler.CompleteProject)
			actions.POST("/projects/:id/report", actionHandler.ReportScam)

			actions.POST("/projects/:id/milestones/:index/deadline", actionHandler.SetDeadline)
			actions.POST("/projects/:id/milestones/:index/extend", actionHandler.ExtendDeadline)
			actions.POST("/projects/:id/milestones/:index/submit", actionHandler.SubmitMilestone)
			actions.POST("/projects/:id/milestones/:index/vote", actionHandler.CastVote)
			actions.POST("/projects/:id/milestones/:index/finalize", actionHandler.FinalizeVoting)
			actions.POST("/projects/:id/milestones/:index/rework", actionHandler.ReworkMilestone)
			actions.POST("/projects/:id/milestones/:index/unlock", actionHandler.UnlockMilestone)
			actions.POST("/projects/:id/milestones/:index/claim", actionHandler.ClaimTokens)
			actions.POST("/projects/:id/milestones/:index/recovery-claim", actionHandler.RecoveryClaim)
			actions.POST("/projects/:id/milestones/:index/distribute", actionHandler.BatchDistribute)
			actions.POST("/projects/:id/milestones/:index/force-complete", actionHandler.ForceComplete)

			actions.POST("/projects/:id/pivot", actionHandler.ProposePivot)
			actions.POST("/projects/:id/pivot/approve", actionHandler.ApprovePivot)
			actions.POST("/projects/:id/pivot/withdraw", actionHandler.PivotWithdraw)
			actions.POST("/projects/:id/pivot/finalize", actionHandler.FinalizePivot)

			actions.POST("/projects/:id/vesting/init", actionHandler.InitVesting)
			actions.POST("/projects/:id/vesting/claim", actionHandler.ClaimVesting)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
