package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// RateRepository 汇率蜡烛仓储 (原始层 + 暂存层)
type RateRepository struct {
	db *gorm.DB
}

// NewRateRepository 创建汇率仓储
func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

// BatchUpsertRaw 批量写入原始蜡烛 (采集侧幂等入口)
func (r *RateRepository) BatchUpsertRaw(ctx context.Context, candles []*model.RateCandle) error {
	if len(candles) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "open_time"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"close_time", "open", "high", "low", "close",
			"volume", "quote_volume", "trade_count",
		}),
	}).CreateInBatches(candles, 100).Error
}

// ListRaw 读取全部原始蜡烛
func (r *RateRepository) ListRaw(ctx context.Context) ([]*model.RateCandle, error) {
	var rows []*model.RateCandle
	err := r.db.WithContext(ctx).Order("symbol ASC, open_time ASC").Find(&rows).Error
	return rows, err
}

// ReplaceStaged 全量替换暂存层蜡烛
func (r *RateRepository) ReplaceStaged(ctx context.Context, rows []*model.StagedRate, batchSize int) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.StagedRate{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// ListStaged 读取全部暂存层蜡烛
func (r *RateRepository) ListStaged(ctx context.Context) ([]*model.StagedRate, error) {
	var rows []*model.StagedRate
	err := r.db.WithContext(ctx).Order("base_currency ASC, open_time ASC").Find(&rows).Error
	return rows, err
}
