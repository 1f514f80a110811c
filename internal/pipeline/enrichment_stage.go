package pipeline

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/enrich"
	"github.com/vela-analytics/vela-warehouse/internal/metrics"
	"github.com/vela-analytics/vela-warehouse/internal/model"
	"github.com/vela-analytics/vela-warehouse/internal/repository"
)

// EnrichmentStage 富化阶段: 时点汇率与 KYC 连接
type EnrichmentStage struct {
	stableCurrency string
	tiers          *model.TierOrder
	batchSize      int
}

// NewEnrichmentStage 创建富化阶段
func NewEnrichmentStage(stableCurrency string, tiers *model.TierOrder, batchSize int) *EnrichmentStage {
	return &EnrichmentStage{
		stableCurrency: stableCurrency,
		tiers:          tiers,
		batchSize:      batchSize,
	}
}

// Name 阶段名称
func (s *EnrichmentStage) Name() string {
	return StageNameEnrichment
}

// Run 执行富化阶段
func (s *EnrichmentStage) Run(ctx context.Context, tx *gorm.DB) (*StageResult, error) {
	result := NewStageResult()

	txRepo := repository.NewTransactionRepository(tx)
	rateRepo := repository.NewRateRepository(tx)
	kycRepo := repository.NewKycRepository(tx)
	enrichedRepo := repository.NewEnrichedRepository(tx)

	stagedTxs, err := txRepo.ListStaged(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list staged transactions: %w", err)
	}
	stagedRates, err := rateRepo.ListStaged(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list staged rates: %w", err)
	}
	history, err := kycRepo.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list kyc history: %w", err)
	}

	enricher := enrich.New(s.stableCurrency, s.tiers, stagedRates, history)
	enriched := enricher.EnrichAll(stagedTxs)

	if err := enrichedRepo.ReplaceAll(ctx, enriched, s.batchSize); err != nil {
		return result, fmt.Errorf("failed to replace enriched transactions: %w", err)
	}

	missingRate := 0
	missingKyc := 0
	for _, e := range enriched {
		if e.IsMissingRate {
			missingRate++
		}
		if e.IsMissingKycHistory {
			missingKyc++
		}
	}
	metrics.MissingRateGauge.Set(float64(missingRate))
	metrics.MissingKycGauge.Set(float64(missingKyc))

	result.ProcessedCount = len(stagedTxs)
	result.AffectedCount = len(enriched)
	result.Details["enriched_transactions"] = len(enriched)
	result.Details["missing_rate"] = missingRate
	result.Details["missing_kyc_history"] = missingKyc

	return result, nil
}
