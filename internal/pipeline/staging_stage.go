package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/metrics"
	"github.com/vela-analytics/vela-warehouse/internal/repository"
	"github.com/vela-analytics/vela-warehouse/internal/scd"
	"github.com/vela-analytics/vela-warehouse/internal/staging"
	"github.com/vela-analytics/vela-warehouse/pkg/logger"
)

// StagingStage 暂存阶段: 清洗原始行并推进 KYC 历史
type StagingStage struct {
	normalizer *staging.Normalizer
	batchSize  int
	// now 可注入, 用于失效区间的关闭时间
	now func() time.Time
}

// NewStagingStage 创建暂存阶段
func NewStagingStage(normalizer *staging.Normalizer, batchSize int) *StagingStage {
	return &StagingStage{
		normalizer: normalizer,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Name 阶段名称
func (s *StagingStage) Name() string {
	return StageNameStaging
}

// Run 执行暂存阶段
func (s *StagingStage) Run(ctx context.Context, tx *gorm.DB) (*StageResult, error) {
	result := NewStageResult()

	txRepo := repository.NewTransactionRepository(tx)
	userRepo := repository.NewUserRepository(tx)
	rateRepo := repository.NewRateRepository(tx)
	kycRepo := repository.NewKycRepository(tx)

	// 1. 交易
	rawTxs, err := txRepo.ListRaw(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list raw transactions: %w", err)
	}
	stagedTxs, txRejects := s.normalizer.NormalizeTransactions(rawTxs)
	if err := txRepo.ReplaceStaged(ctx, stagedTxs, s.batchSize); err != nil {
		return result, fmt.Errorf("failed to replace staged transactions: %w", err)
	}

	// 2. 用户
	rawUsers, err := userRepo.ListRaw(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list raw users: %w", err)
	}
	stagedUsers, userRejects := s.normalizer.NormalizeUsers(rawUsers)
	if err := userRepo.ReplaceStaged(ctx, stagedUsers, s.batchSize); err != nil {
		return result, fmt.Errorf("failed to replace staged users: %w", err)
	}

	// 3. 汇率蜡烛
	rawRates, err := rateRepo.ListRaw(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list raw rates: %w", err)
	}
	stagedRates := s.normalizer.NormalizeRates(rawRates)
	if err := rateRepo.ReplaceStaged(ctx, stagedRates, s.batchSize); err != nil {
		return result, fmt.Errorf("failed to replace staged rates: %w", err)
	}

	// 4. KYC 历史协调 (SCD2)
	history, err := kycRepo.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list kyc history: %w", err)
	}
	// 被拒绝的用户行仍在源中, 不得当作删除去关闭其历史
	rejectedUsers := make(map[string]bool, len(userRejects))
	for _, rej := range userRejects {
		rejectedUsers[rej.Key] = true
	}
	delta, err := scd.Reconcile(history, stagedUsers, rejectedUsers, s.now().UnixMilli())
	if err != nil {
		return result, fmt.Errorf("failed to reconcile kyc history: %w", err)
	}
	if err := kycRepo.ApplyDelta(ctx, delta.Inserts, delta.Closes, s.batchSize); err != nil {
		return result, fmt.Errorf("failed to apply kyc delta: %w", err)
	}

	// 拒绝行: 行级数据质量错误, 不中断批次
	for _, rej := range txRejects {
		logger.Warn("rejected transaction row",
			zap.String("tx_id", rej.Key),
			zap.String("field", rej.Field),
			zap.String("reason", rej.Reason))
	}
	for _, rej := range userRejects {
		logger.Warn("rejected user row",
			zap.String("user_id", rej.Key),
			zap.String("field", rej.Field),
			zap.String("reason", rej.Reason))
	}
	metrics.RejectedRowsTotal.WithLabelValues("transactions").Add(float64(len(txRejects)))
	metrics.RejectedRowsTotal.WithLabelValues("users").Add(float64(len(userRejects)))

	result.ProcessedCount = len(rawTxs) + len(rawUsers) + len(rawRates)
	result.AffectedCount = len(stagedTxs) + len(stagedUsers) + len(stagedRates) + len(delta.Inserts)
	result.RejectedCount = len(txRejects) + len(userRejects)
	result.Details["staged_transactions"] = len(stagedTxs)
	result.Details["staged_users"] = len(stagedUsers)
	result.Details["staged_rates"] = len(stagedRates)
	result.Details["kyc_intervals_opened"] = len(delta.Inserts)
	result.Details["kyc_intervals_closed"] = len(delta.Closes)

	return result, nil
}
