package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// KycRepository KYC 等级历史仓储 (SCD2, 仅追加 + 关闭区间)
type KycRepository struct {
	db *gorm.DB
}

// NewKycRepository 创建 KYC 历史仓储
func NewKycRepository(db *gorm.DB) *KycRepository {
	return &KycRepository{db: db}
}

// List 读取全部历史区间
func (r *KycRepository) List(ctx context.Context) ([]*model.KycSnapshot, error) {
	var rows []*model.KycSnapshot
	err := r.db.WithContext(ctx).Order("user_id ASC, valid_from ASC").Find(&rows).Error
	return rows, err
}

// ApplyDelta 应用一次协调的变更: 关闭旧区间, 插入新区间
func (r *KycRepository) ApplyDelta(ctx context.Context, inserts, closes []*model.KycSnapshot, batchSize int) error {
	for _, rec := range closes {
		if err := r.db.WithContext(ctx).
			Model(&model.KycSnapshot{}).
			Where("record_id = ?", rec.RecordID).
			Update("valid_to", rec.ValidTo).Error; err != nil {
			return err
		}
	}
	if len(inserts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(inserts, batchSize).Error
}

// LevelAt 时点 KYC 查询: at 时刻对 userID 有效的等级
// 无匹配区间时返回 (""), 由调用方决定缺省行为
func (r *KycRepository) LevelAt(ctx context.Context, userID string, at int64) (string, error) {
	var rec model.KycSnapshot
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND valid_from <= ? AND (valid_to > ? OR valid_to IS NULL)", userID, at, at).
		Order("valid_from DESC").
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return rec.KycLevel, nil
}
