package task

import (
	"context"
	"time"

	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/logger"
	"github.com/blues/ess/internal/logic"
	"github.com/blues/ess/internal/model"
	"github.com/go-co-op/gocron/v2"
)

// RepaymentCheckJob 还款巡检任务
type RepaymentCheckJob struct {
	reconciler *logic.ReconcilerLogic
	config     *config.Config
}

// NewRepaymentCheckJob 创建还款巡检任务
func NewRepaymentCheckJob(reconciler *logic.ReconcilerLogic, cfg *config.Config) *RepaymentCheckJob {
	return &RepaymentCheckJob{
		reconciler: reconciler,
		config:     cfg,
	}
}

// GetName 获取任务名称
func (j *RepaymentCheckJob) GetName() string {
	return "repayment_checker"
}

// GetSchedule 获取调度配置
func (j *RepaymentCheckJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *RepaymentCheckJob) Execute() {
	logger.Info("Starting repayment check task")

	result, err := j.reconciler.CheckAllPending(context.Background(), model.CheckerSourceAutomated)
	if err != nil {
		logger.Error("Repayment check task failed: %v", err)
		return
	}

	logger.Info("Repayment check task completed. Checked %d, newly repaid %d, still pending %d",
		result.TotalChecked, result.NewlyRepaid, result.StillPending)
}
