package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// VolumeBucket 按时间桶聚合的交易量
type VolumeBucket struct {
	Bucket    string `json:"bucket"`
	TxCount   int64  `json:"tx_count"`
	VolumeUSD string `json:"volume_usd"`
}

// TierVolume 按 KYC 等级聚合的交易量
type TierVolume struct {
	KycLevel  string `json:"kyc_level"`
	TxCount   int64  `json:"tx_count"`
	VolumeUSD string `json:"volume_usd"`
}

// MartRepository 集市层仓储
type MartRepository struct {
	db *gorm.DB
}

// NewMartRepository 创建集市层仓储
func NewMartRepository(db *gorm.DB) *MartRepository {
	return &MartRepository{db: db}
}

// ReplaceFacts 全量替换事实表
func (r *MartRepository) ReplaceFacts(ctx context.Context, rows []*model.FactTransaction, batchSize int) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.FactTransaction{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// ReplaceUserDimension 全量替换用户维度
func (r *MartRepository) ReplaceUserDimension(ctx context.Context, rows []*model.UserDimension, batchSize int) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.UserDimension{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// ListFacts 读取全部事实行
func (r *MartRepository) ListFacts(ctx context.Context) ([]*model.FactTransaction, error) {
	var rows []*model.FactTransaction
	err := r.db.WithContext(ctx).Order("tx_id ASC").Find(&rows).Error
	return rows, err
}

// ListUserDimension 读取全部用户维度行
func (r *MartRepository) ListUserDimension(ctx context.Context) ([]*model.UserDimension, error) {
	var rows []*model.UserDimension
	err := r.db.WithContext(ctx).Order("user_id ASC").Find(&rows).Error
	return rows, err
}

// VolumeByDay 按日聚合交易量 (固定业务问题: 随时间的交易量)
func (r *MartRepository) VolumeByDay(ctx context.Context, startDay, endDay string) ([]*VolumeBucket, error) {
	var rows []*VolumeBucket
	query := r.db.WithContext(ctx).
		Model(&model.FactTransaction{}).
		Select("created_day AS bucket, COUNT(*) AS tx_count, CAST(SUM(destination_amount_usd) AS TEXT) AS volume_usd").
		Group("created_day").
		Order("created_day ASC")

	if startDay != "" {
		query = query.Where("created_day >= ?", startDay)
	}
	if endDay != "" {
		query = query.Where("created_day <= ?", endDay)
	}

	err := query.Scan(&rows).Error
	return rows, err
}

// VolumeByKycTier 按交易时点 KYC 等级聚合交易量
func (r *MartRepository) VolumeByKycTier(ctx context.Context) ([]*TierVolume, error) {
	var rows []*TierVolume
	err := r.db.WithContext(ctx).
		Model(&model.FactTransaction{}).
		Select("kyc_level_at_transaction AS kyc_level, COUNT(*) AS tx_count, CAST(SUM(destination_amount_usd) AS TEXT) AS volume_usd").
		Group("kyc_level_at_transaction").
		Order("kyc_level_at_transaction ASC").
		Scan(&rows).Error
	return rows, err
}
