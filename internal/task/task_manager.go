package task

import (
	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/logger"
	"github.com/blues/ess/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// TaskManager 任务管理器
type TaskManager struct {
	scheduler  gocron.Scheduler
	reconciler *logic.ReconcilerLogic
	config     *config.Config
}

// NewTaskManager 创建新的任务管理器
func NewTaskManager(reconciler *logic.ReconcilerLogic, cfg *config.Config) *TaskManager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &TaskManager{
		scheduler:  s,
		reconciler: reconciler,
		config:     cfg,
	}
}

// Start 启动任务管理器
func Start(reconciler *logic.ReconcilerLogic, cfg *config.Config) *TaskManager {
	manager := NewTaskManager(reconciler, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *TaskManager) RegisterJobs() {
	// 注册还款巡检任务
	m.RegisterRepaymentCheckJob()
}

// RegisterRepaymentCheckJob 注册还款巡检任务
func (m *TaskManager) RegisterRepaymentCheckJob() {
	job := NewRepaymentCheckJob(m.reconciler, m.config)

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

// Stop 停止任务管理器
func (m *TaskManager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
