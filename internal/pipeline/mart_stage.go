package pipeline

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/mart"
	"github.com/vela-analytics/vela-warehouse/internal/repository"
)

// MartStage 集市阶段: 事实表与用户维度
type MartStage struct {
	batchSize int
}

// NewMartStage 创建集市阶段
func NewMartStage(batchSize int) *MartStage {
	return &MartStage{batchSize: batchSize}
}

// Name 阶段名称
func (s *MartStage) Name() string {
	return StageNameMarts
}

// Run 执行集市阶段
func (s *MartStage) Run(ctx context.Context, tx *gorm.DB) (*StageResult, error) {
	result := NewStageResult()

	enrichedRepo := repository.NewEnrichedRepository(tx)
	userRepo := repository.NewUserRepository(tx)
	martRepo := repository.NewMartRepository(tx)

	enriched, err := enrichedRepo.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list enriched transactions: %w", err)
	}
	stagedUsers, err := userRepo.ListStaged(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list staged users: %w", err)
	}

	facts := mart.BuildFacts(enriched)
	dims := mart.BuildUserDimension(stagedUsers, facts)

	if err := martRepo.ReplaceFacts(ctx, facts, s.batchSize); err != nil {
		return result, fmt.Errorf("failed to replace fact table: %w", err)
	}
	if err := martRepo.ReplaceUserDimension(ctx, dims, s.batchSize); err != nil {
		return result, fmt.Errorf("failed to replace user dimension: %w", err)
	}

	result.ProcessedCount = len(enriched)
	result.AffectedCount = len(facts) + len(dims)
	result.Details["fact_transactions"] = len(facts)
	result.Details["dim_users"] = len(dims)
	result.Details["filtered_out"] = len(enriched) - len(facts)

	return result, nil
}
