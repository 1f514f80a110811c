package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vela-analytics/vela-warehouse/internal/model"
	"github.com/vela-analytics/vela-warehouse/internal/repository"
	"github.com/vela-analytics/vela-warehouse/internal/scd"
	"github.com/vela-analytics/vela-warehouse/internal/staging"
)

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

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

// seedSources 写入一组覆盖主要路径的原始数据
func seedSources(t *testing.T, db *gorm.DB) {
	txs := []*model.Transaction{
		// BTC 交易, 汇率可解析
		{TxID: "t1", UserID: "u1", SourceCurrency: "USD", DestinationCurrency: "btc",
			SourceAmount: decimal.NewFromInt(100), DestinationAmount: decimal.NewFromInt(5),
			CreatedAt: "2024-03-15T10:30:00Z", Status: "completed"},
		// 稳定币交易
		{TxID: "t2", UserID: "u1", SourceCurrency: "USD", DestinationCurrency: "USDT",
			SourceAmount: decimal.NewFromInt(100), DestinationAmount: decimal.NewFromInt(100),
			CreatedAt: "2024-03-15 12:00:00", Status: "COMPLETED"},
		// 未完成交易: 不进入事实表
		{TxID: "t3", UserID: "u1", SourceCurrency: "USD", DestinationCurrency: "BTC",
			SourceAmount: decimal.NewFromInt(10), DestinationAmount: decimal.NewFromInt(1),
			CreatedAt: "2024-03-15T13:00:00Z", Status: "PENDING"},
		// 无汇率币种: 富化保留但不进入事实表
		{TxID: "t4", UserID: "u1", SourceCurrency: "USD", DestinationCurrency: "ETH",
			SourceAmount: decimal.NewFromInt(10), DestinationAmount: decimal.NewFromInt(1),
			CreatedAt: "2024-03-15T14:00:00Z", Status: "COMPLETED"},
		// 坏时间戳: 暂存阶段拒绝
		{TxID: "t5", UserID: "u1", SourceCurrency: "USD", DestinationCurrency: "BTC",
			SourceAmount: decimal.NewFromInt(10), DestinationAmount: decimal.NewFromInt(1),
			CreatedAt: "not-a-timestamp", Status: "COMPLETED"},
	}
	if err := db.Create(&txs).Error; err != nil {
		t.Fatalf("seed transactions failed: %v", err)
	}

	users := []*model.User{
		{UserID: "u1", KycLevel: "l1", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"},
		// 零交易用户
		{UserID: "u2", KycLevel: "L0", CreatedAt: "2024-02-01T00:00:00Z", UpdatedAt: "2024-02-01T00:00:00Z"},
	}
	if err := db.Create(&users).Error; err != nil {
		t.Fatalf("seed users failed: %v", err)
	}

	rates := []*model.RateCandle{
		{Symbol: "BTCUSDT", OpenTime: 1_710_000_000_000, CloseTime: 1_710_000_059_999,
			Open: decimal.NewFromInt(9), High: decimal.NewFromInt(11), Low: decimal.NewFromInt(9),
			Close: decimal.NewFromInt(10), Volume: decimal.NewFromInt(1), QuoteVolume: decimal.NewFromInt(10)},
	}
	if err := db.Create(&rates).Error; err != nil {
		t.Fatalf("seed rates failed: %v", err)
	}
}

func newTestRunner(db *gorm.DB) *Runner {
	normalizer := staging.NewNormalizer("USDT")
	tiers := model.NewTierOrder([]string{"L0", "L1", "L2", "L3"})

	stagingStage := NewStagingStage(normalizer, 100)
	// 固定观测时间, 保证重跑决定性
	stagingStage.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }

	return NewRunner(db, []Stage{
		stagingStage,
		NewEnrichmentStage("USDT", tiers, 100),
		NewMartStage(100),
	})
}

func TestRunner_FullPipeline(t *testing.T) {
	db := setupTestDB(t)
	seedSources(t, db)
	runner := newTestRunner(db)
	ctx := context.Background()

	if err := runner.RunAll(ctx); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	// 暂存层: 坏行被拒绝
	var stagedTxs []*model.StagedTransaction
	db.Order("tx_id ASC").Find(&stagedTxs)
	if len(stagedTxs) != 4 {
		t.Fatalf("expected 4 staged transactions, got %d", len(stagedTxs))
	}
	if stagedTxs[0].DestinationCurrency != "BTC" || stagedTxs[0].Status != "COMPLETED" {
		t.Errorf("staging did not clean row: %+v", stagedTxs[0])
	}

	// KYC 历史: 每个用户一条开放区间
	var history []*model.KycSnapshot
	db.Order("user_id ASC").Find(&history)
	if len(history) != 2 {
		t.Fatalf("expected 2 kyc intervals, got %d", len(history))
	}
	if !history[0].IsOpen() || history[0].KycLevel != "L1" {
		t.Errorf("u1 interval wrong: %+v", history[0])
	}

	// 中间层: 汇率与 KYC 解析
	enriched := map[string]*model.EnrichedTransaction{}
	var enrichedRows []*model.EnrichedTransaction
	db.Find(&enrichedRows)
	for _, e := range enrichedRows {
		enriched[e.TxID] = e
	}
	if len(enriched) != 4 {
		t.Fatalf("expected 4 enriched rows, got %d", len(enriched))
	}
	if !enriched["t1"].DestinationAmountUSD.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Errorf("t1 usd = %v, want 50", enriched["t1"].DestinationAmountUSD)
	}
	if enriched["t1"].KycLevelAtTransaction != "L1" {
		t.Errorf("t1 kyc = %s", enriched["t1"].KycLevelAtTransaction)
	}
	if !enriched["t2"].ExchangeRate.Decimal.Equal(decimal.NewFromInt(1)) {
		t.Errorf("t2 stable rate = %v", enriched["t2"].ExchangeRate)
	}
	if !enriched["t4"].IsMissingRate || enriched["t4"].DestinationAmountUSD.Valid {
		t.Errorf("t4 should be missing rate: %+v", enriched["t4"])
	}

	// 事实表: 只有已完成且 USD 已解析的 t1/t2
	var facts []*model.FactTransaction
	db.Order("tx_id ASC").Find(&facts)
	if len(facts) != 2 || facts[0].TxID != "t1" || facts[1].TxID != "t2" {
		t.Fatalf("unexpected facts: %d", len(facts))
	}

	// 用户维度: u1 有聚合指标, u2 为零值行
	var dims []*model.UserDimension
	db.Order("user_id ASC").Find(&dims)
	if len(dims) != 2 {
		t.Fatalf("expected 2 dims, got %d", len(dims))
	}
	u1 := dims[0]
	if u1.TxCount != 2 || !u1.LifetimeVolumeUSD.Equal(decimal.NewFromInt(150)) {
		t.Errorf("u1 aggregates wrong: count=%d volume=%s", u1.TxCount, u1.LifetimeVolumeUSD)
	}
	if u1.FrequencyTier != model.FreqTierCasual || u1.ValueTier != model.ValueTierBronze {
		t.Errorf("u1 tiers wrong: %s / %s", u1.FrequencyTier, u1.ValueTier)
	}
	u2 := dims[1]
	if u2.TxCount != 0 || u2.FrequencyTier != model.TierNone {
		t.Errorf("u2 should be zero-activity: %+v", u2)
	}

	// 每个阶段都有成功的运行记录
	execRepo := repository.NewExecutionRepository(db)
	for _, stage := range []string{StageNameStaging, StageNameEnrichment, StageNameMarts} {
		exec, err := execRepo.GetLatestByStage(ctx, stage)
		if err != nil || exec == nil {
			t.Fatalf("missing execution record for %s: %v", stage, err)
		}
		if exec.Status != model.RunStatusSuccess {
			t.Errorf("stage %s status = %s", stage, exec.Status)
		}
		if exec.Result == nil {
			t.Errorf("stage %s result missing", stage)
		}
	}
}

func TestRunner_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	seedSources(t, db)
	runner := newTestRunner(db)
	ctx := context.Background()

	if err := runner.RunAll(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	var factsFirst []*model.FactTransaction
	var dimsFirst []*model.UserDimension
	var historyFirst []*model.KycSnapshot
	db.Order("tx_id ASC").Find(&factsFirst)
	db.Order("user_id ASC").Find(&dimsFirst)
	db.Order("record_id ASC").Find(&historyFirst)

	if err := runner.RunAll(ctx); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var factsSecond []*model.FactTransaction
	var dimsSecond []*model.UserDimension
	var historySecond []*model.KycSnapshot
	db.Order("tx_id ASC").Find(&factsSecond)
	db.Order("user_id ASC").Find(&dimsSecond)
	db.Order("record_id ASC").Find(&historySecond)

	if len(factsFirst) != len(factsSecond) {
		t.Fatalf("fact count changed: %d -> %d", len(factsFirst), len(factsSecond))
	}
	for i := range factsFirst {
		if factsFirst[i].TxID != factsSecond[i].TxID ||
			!factsFirst[i].DestinationAmountUSD.Equal(factsSecond[i].DestinationAmountUSD) {
			t.Errorf("fact %d differs between runs", i)
		}
	}

	if len(dimsFirst) != len(dimsSecond) {
		t.Fatalf("dim count changed: %d -> %d", len(dimsFirst), len(dimsSecond))
	}
	for i := range dimsFirst {
		if dimsFirst[i].UserID != dimsSecond[i].UserID ||
			dimsFirst[i].TxCount != dimsSecond[i].TxCount ||
			!dimsFirst[i].LifetimeVolumeUSD.Equal(dimsSecond[i].LifetimeVolumeUSD) {
			t.Errorf("dim %d differs between runs", i)
		}
	}

	// KYC 历史收敛: 重跑不追加区间
	if len(historyFirst) != len(historySecond) {
		t.Fatalf("kyc history grew on re-run: %d -> %d", len(historyFirst), len(historySecond))
	}
}

func TestRunner_RejectedUserKeepsKycHistory(t *testing.T) {
	db := setupTestDB(t)
	seedSources(t, db)
	runner := newTestRunner(db)
	ctx := context.Background()

	if err := runner.RunAll(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// 损坏 u1 的 updated_at: 行被拒绝, 但用户仍在源中, 不是删除
	if err := db.Model(&model.User{}).Where("user_id = ?", "u1").
		Update("updated_at", "garbage").Error; err != nil {
		t.Fatalf("corrupt user row failed: %v", err)
	}
	if err := runner.RunAll(ctx); err != nil {
		t.Fatalf("run with rejected row failed: %v", err)
	}

	var open []*model.KycSnapshot
	db.Where("user_id = ? AND valid_to IS NULL", "u1").Find(&open)
	if len(open) != 1 {
		t.Fatalf("u1 open interval count after rejected run = %d, want 1", len(open))
	}

	// 行修复后重跑: 历史无新增区间且不变式保持
	if err := db.Model(&model.User{}).Where("user_id = ?", "u1").
		Update("updated_at", "2024-01-01T00:00:00Z").Error; err != nil {
		t.Fatalf("repair user row failed: %v", err)
	}
	if err := runner.RunAll(ctx); err != nil {
		t.Fatalf("run after repair failed: %v", err)
	}

	var history []*model.KycSnapshot
	db.Where("user_id = ?", "u1").Find(&history)
	if len(history) != 1 {
		t.Fatalf("u1 history count after recovery = %d, want 1", len(history))
	}
	if err := scd.ValidateHistory(history); err != nil {
		t.Errorf("history invariants violated after recovery: %v", err)
	}
}

func TestRunner_StageFailureRecorded(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, []Stage{&failingStage{}})
	ctx := context.Background()

	if err := runner.RunAll(ctx); err == nil {
		t.Fatal("expected error from failing stage")
	}

	// 失败记录在事务回滚后仍可见
	execRepo := repository.NewExecutionRepository(db)
	exec, err := execRepo.GetLatestByStage(ctx, "boom")
	if err != nil || exec == nil {
		t.Fatalf("missing failure record: %v", err)
	}
	if exec.Status != model.RunStatusFailed {
		t.Errorf("status = %s", exec.Status)
	}
	if exec.ErrorMessage == nil || *exec.ErrorMessage == "" {
		t.Error("error message should be recorded")
	}
}

func TestRunner_RecordSkipped(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, nil)
	ctx := context.Background()

	runner.RecordSkipped(ctx, "pipeline is running on another instance")

	execRepo := repository.NewExecutionRepository(db)
	exec, err := execRepo.GetLatestByStage(ctx, "pipeline")
	if err != nil || exec == nil {
		t.Fatalf("missing skipped record: %v", err)
	}
	if exec.Status != model.RunStatusSkipped {
		t.Errorf("status = %s", exec.Status)
	}
}

// failingStage 恒定失败的阶段
type failingStage struct{}

func (s *failingStage) Name() string { return "boom" }

func (s *failingStage) Run(ctx context.Context, tx *gorm.DB) (*StageResult, error) {
	return NewStageResult(), gorm.ErrInvalidData
}
