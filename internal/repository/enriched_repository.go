package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// CoverageStats 富化覆盖率统计 (数据质量报表)
type CoverageStats struct {
	Total             int64 `json:"total"`
	MissingRate       int64 `json:"missing_rate"`
	MissingKycHistory int64 `json:"missing_kyc_history"`
}

// EnrichedRepository 富化交易仓储 (中间层)
type EnrichedRepository struct {
	db *gorm.DB
}

// NewEnrichedRepository 创建富化交易仓储
func NewEnrichedRepository(db *gorm.DB) *EnrichedRepository {
	return &EnrichedRepository{db: db}
}

// ReplaceAll 全量替换中间层
func (r *EnrichedRepository) ReplaceAll(ctx context.Context, rows []*model.EnrichedTransaction, batchSize int) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.EnrichedTransaction{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// ListAll 读取全部富化交易
func (r *EnrichedRepository) ListAll(ctx context.Context) ([]*model.EnrichedTransaction, error) {
	var rows []*model.EnrichedTransaction
	err := r.db.WithContext(ctx).Order("tx_id ASC").Find(&rows).Error
	return rows, err
}

// Coverage 统计缺失标记数量
func (r *EnrichedRepository) Coverage(ctx context.Context) (*CoverageStats, error) {
	stats := &CoverageStats{}

	if err := r.db.WithContext(ctx).Model(&model.EnrichedTransaction{}).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.EnrichedTransaction{}).
		Where("is_missing_rate = ?", true).
		Count(&stats.MissingRate).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.EnrichedTransaction{}).
		Where("is_missing_kyc_history = ?", true).
		Count(&stats.MissingKycHistory).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
