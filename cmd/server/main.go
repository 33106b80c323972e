package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zemyth-app/raise/internal/config"
	"github.com/zemyth-app/raise/internal/database"
	"github.com/zemyth-app/raise/internal/event"
	"github.com/zemyth-app/raise/internal/ledger"
	"github.com/zemyth-app/raise/internal/lifecycle"
	"github.com/zemyth-app/raise/internal/logger"
	"github.com/zemyth-app/raise/internal/logic"
	"github.com/zemyth-app/raise/internal/monitor"
	"github.com/zemyth-app/raise/internal/router"
	"github.com/zemyth-app/raise/internal/task"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	level := logger.ParseLogLevel(cfg.Log.Level)
	if cfg.Log.Output == "file" {
		l, err := logger.NewWithFileRotation(level, cfg.Log.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(l)
	} else {
		logger.SetLevel(level)
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化账本客户端
	client, err := ledger.Init(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize ledger client: %v", err)
	}

	// 链上动作编排
	actionLogic := logic.NewActionLogic(client, client, client.ProgramAddr,
		cfg.Protocol.Params(), lifecycle.SystemClock())

	// 事件处理与监控
	processor := event.NewProcessor(client, client.ProgramAddr,
		logic.NewProjectLogic(db), logic.NewMilestoneLogic(db),
		logic.NewInvestmentLogic(db), logic.NewVoteLogic(db), logic.NewRefundLogic(db))
	eventMonitor, err := monitor.NewEventMonitor(client, db, processor,
		time.Duration(cfg.Task.MonitorInterval)*time.Second,
		cfg.Chain.BatchSize, cfg.Task.PoolSize)
	if err != nil {
		logger.Fatal("Failed to initialize event monitor: %v", err)
	}
	if err := eventMonitor.Start(); err != nil {
		logger.Fatal("Failed to start event monitor: %v", err)
	}
	defer eventMonitor.Stop()

	// 启动巡检任务
	manager := task.Start(db, actionLogic, client, client.ProgramAddr,
		client.SubmitterAddress(), cfg)
	defer manager.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 启动HTTP服务器
	r := router.Setup(db, actionLogic, client)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// 等待退出信号，优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}
