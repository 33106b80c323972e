package task

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/zemyth-app/raise/internal/config"
	"github.com/zemyth-app/raise/internal/ledger"
	"github.com/zemyth-app/raise/internal/logger"
	"github.com/zemyth-app/raise/internal/logic"
	"gorm.io/gorm"
)

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	jobs      []Job
}

// NewManager 创建任务管理器并注册全部巡检任务。
// submitter 为服务自身的提交地址，巡检触发的链上动作用它签名
func NewManager(db *gorm.DB, actionLogic *logic.ActionLogic, reader ledger.Reader,
	programID, submitter common.Address, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	m := &Manager{scheduler: s}
	m.jobs = []Job{
		NewAbandonmentSweepJob(db, actionLogic, submitter, cfg),
		NewDistributionStallJob(db, actionLogic, submitter, cfg),
		NewReconcileJob(db, reader, programID, cfg),
	}
	return m
}

// Start 启动任务管理器
func Start(db *gorm.DB, actionLogic *logic.ActionLogic, reader ledger.Reader,
	programID, submitter common.Address, cfg *config.Config) *Manager {
	manager := NewManager(db, actionLogic, reader, programID, submitter, cfg)
	manager.RegisterJobs()
	manager.scheduler.Start()
	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	for _, job := range m.jobs {
		_, err := m.scheduler.NewJob(
			job.GetSchedule(),
			gocron.NewTask(job.Execute),
			gocron.WithName(job.GetName()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			logger.Error("Failed to register job %s: %v", job.GetName(), err)
		}
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
