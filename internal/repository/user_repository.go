package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// UserRepository 用户仓储 (原始层 + 暂存层)
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListRaw 读取全部原始用户
func (r *UserRepository) ListRaw(ctx context.Context) ([]*model.User, error) {
	var rows []*model.User
	err := r.db.WithContext(ctx).Order("user_id ASC").Find(&rows).Error
	return rows, err
}

// ReplaceStaged 全量替换暂存层用户
func (r *UserRepository) ReplaceStaged(ctx context.Context, rows []*model.StagedUser, batchSize int) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.StagedUser{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// ListStaged 读取全部暂存层用户
func (r *UserRepository) ListStaged(ctx context.Context) ([]*model.StagedUser, error) {
	var rows []*model.StagedUser
	err := r.db.WithContext(ctx).Order("user_id ASC").Find(&rows).Error
	return rows, err
}
