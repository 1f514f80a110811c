package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// 自动迁移
	err = db.AutoMigrate(
		&model.Transaction{},
		&model.StagedTransaction{},
		&model.User{},
		&model.StagedUser{},
		&model.RateCandle{},
		&model.StagedRate{},
		&model.KycSnapshot{},
		&model.EnrichedTransaction{},
		&model.FactTransaction{},
		&model.UserDimension{},
		&model.PipelineExecution{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}
