package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// TransactionRepository 交易仓储 (原始层 + 暂存层)
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建交易仓储
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListRaw 读取全部原始交易
func (r *TransactionRepository) ListRaw(ctx context.Context) ([]*model.Transaction, error) {
	var rows []*model.Transaction
	err := r.db.WithContext(ctx).Order("tx_id ASC").Find(&rows).Error
	return rows, err
}

// ReplaceStaged 全量替换暂存层交易
// 与阶段事务配合使用: 删除加重写, 部分写入不可见
func (r *TransactionRepository) ReplaceStaged(ctx context.Context, rows []*model.StagedTransaction, batchSize int) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.StagedTransaction{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// ListStaged 读取全部暂存层交易
func (r *TransactionRepository) ListStaged(ctx context.Context) ([]*model.StagedTransaction, error) {
	var rows []*model.StagedTransaction
	err := r.db.WithContext(ctx).Order("tx_id ASC").Find(&rows).Error
	return rows, err
}
