package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/metrics"
	"github.com/vela-analytics/vela-warehouse/internal/model"
	"github.com/vela-analytics/vela-warehouse/internal/repository"
	"github.com/vela-analytics/vela-warehouse/pkg/logger"
)

// Runner 按固定顺序执行流水线: staging → enrichment → marts
// 每个阶段在单独的事务内运行; 阶段失败中止整次运行
type Runner struct {
	db       *gorm.DB
	execRepo *repository.ExecutionRepository
	stages   []Stage
}

// NewRunner 创建运行器
func NewRunner(db *gorm.DB, stages []Stage) *Runner {
	return &Runner{
		db:       db,
		execRepo: repository.NewExecutionRepository(db),
		stages:   stages,
	}
}

// RunAll 执行完整流水线
func (r *Runner) RunAll(ctx context.Context) error {
	for _, stage := range r.stages {
		if err := r.runStage(ctx, stage); err != nil {
			return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
	}
	return nil
}

// runStage 在事务内执行单个阶段并记录运行
// 运行记录写在事务之外, 失败记录在回滚后仍可见
func (r *Runner) runStage(ctx context.Context, stage Stage) error {
	startTime := time.Now()
	exec := &model.PipelineExecution{
		StageName: stage.Name(),
		Status:    model.RunStatusRunning,
		StartedAt: startTime.UnixMilli(),
	}
	if err := r.execRepo.Create(ctx, exec); err != nil {
		logger.Error("failed to record stage start",
			zap.String("stage", stage.Name()),
			zap.Error(err))
	}

	logger.Info("starting stage", zap.String("stage", stage.Name()))

	var result *StageResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stageErr error
		result, stageErr = stage.Run(ctx, tx)
		return stageErr
	})

	if result == nil {
		result = NewStageResult()
	}

	finishTime := time.Now()
	duration := int(finishTime.Sub(startTime).Milliseconds())
	finishedAt := finishTime.UnixMilli()
	exec.FinishedAt = &finishedAt
	exec.DurationMs = &duration

	metrics.StageDuration.WithLabelValues(stage.Name()).Observe(finishTime.Sub(startTime).Seconds())
	metrics.StageLastRunTimestamp.WithLabelValues(stage.Name()).Set(float64(finishedAt) / 1000)

	if err != nil {
		exec.Status = model.RunStatusFailed
		errMsg := err.Error()
		exec.ErrorMessage = &errMsg
		metrics.StageRunsTotal.WithLabelValues(stage.Name(), string(model.RunStatusFailed)).Inc()
		logger.Error("stage failed",
			zap.String("stage", stage.Name()),
			zap.Duration("duration", finishTime.Sub(startTime)),
			zap.Error(err))
	} else {
		exec.Status = model.RunStatusSuccess
		exec.Result = result.ToJSONResult()
		metrics.StageRowsProcessed.WithLabelValues(stage.Name()).Add(float64(result.ProcessedCount))
		metrics.StageRunsTotal.WithLabelValues(stage.Name(), string(model.RunStatusSuccess)).Inc()
		logger.Info("stage completed",
			zap.String("stage", stage.Name()),
			zap.Duration("duration", finishTime.Sub(startTime)),
			zap.Int("processed", result.ProcessedCount),
			zap.Int("affected", result.AffectedCount),
			zap.Int("rejected", result.RejectedCount))
	}

	if updateErr := r.execRepo.Update(context.WithoutCancel(ctx), exec); updateErr != nil {
		logger.Error("failed to update stage execution",
			zap.String("stage", stage.Name()),
			zap.Error(updateErr))
	}

	return err
}

// RecordSkipped 记录被跳过的运行 (如未取得运行锁)
func (r *Runner) RecordSkipped(ctx context.Context, reason string) {
	now := time.Now().UnixMilli()
	zero := 0
	exec := &model.PipelineExecution{
		StageName:    "pipeline",
		Status:       model.RunStatusSkipped,
		StartedAt:    now,
		FinishedAt:   &now,
		DurationMs:   &zero,
		ErrorMessage: &reason,
	}
	if err := r.execRepo.Create(ctx, exec); err != nil {
		logger.Error("failed to record skipped run", zap.Error(err))
	}
}
