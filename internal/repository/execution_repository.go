package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// ExecutionRepository 流水线运行记录仓储
type ExecutionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository 创建运行记录仓储
func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Create 创建运行记录
func (r *ExecutionRepository) Create(ctx context.Context, exec *model.PipelineExecution) error {
	exec.CreatedAt = time.Now().UnixMilli()
	return r.db.WithContext(ctx).Create(exec).Error
}

// Update 更新运行记录
func (r *ExecutionRepository) Update(ctx context.Context, exec *model.PipelineExecution) error {
	return r.db.WithContext(ctx).Save(exec).Error
}

// GetLatestByStage 获取某阶段最新一次运行
func (r *ExecutionRepository) GetLatestByStage(ctx context.Context, stageName string) (*model.PipelineExecution, error) {
	var exec model.PipelineExecution
	err := r.db.WithContext(ctx).
		Where("stage_name = ?", stageName).
		Order("started_at DESC").
		First(&exec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &exec, nil
}

// ListRecent 查询最近的运行记录
func (r *ExecutionRepository) ListRecent(ctx context.Context, limit int) ([]*model.PipelineExecution, error) {
	if limit <= 0 {
		limit = 100
	}
	var execs []*model.PipelineExecution
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&execs).Error
	return execs, err
}

// CountByStatus 按状态统计运行次数
func (r *ExecutionRepository) CountByStatus(ctx context.Context, status model.RunStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PipelineExecution{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// CleanupOldRecords 清理早于给定时间的运行记录
func (r *ExecutionRepository) CleanupOldRecords(ctx context.Context, beforeTime int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("started_at < ?", beforeTime).
		Delete(&model.PipelineExecution{})
	return result.RowsAffected, result.Error
}
