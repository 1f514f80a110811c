package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

func enrichedRow(txID string, missingRate, missingKyc bool) *model.EnrichedTransaction {
	row := &model.EnrichedTransaction{
		TxID:                  txID,
		UserID:                "u1",
		Status:                "COMPLETED",
		KycLevelAtTransaction: "L0",
		IsMissingRate:         missingRate,
		IsMissingKycHistory:   missingKyc,
	}
	if !missingRate {
		row.DestinationAmountUSD = decimal.NewNullDecimal(decimal.NewFromInt(100))
	}
	return row
}

func TestEnrichedRepository_ReplaceAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrichedRepository(db)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, []*model.EnrichedTransaction{
		enrichedRow("t1", false, false),
		enrichedRow("t2", true, false),
	}, 100); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	if err := repo.ReplaceAll(ctx, []*model.EnrichedTransaction{
		enrichedRow("t3", false, true),
	}, 100); err != nil {
		t.Fatalf("second ReplaceAll failed: %v", err)
	}

	rows, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(rows) != 1 || rows[0].TxID != "t3" {
		t.Fatalf("replace semantics violated: %d rows", len(rows))
	}
}

func TestEnrichedRepository_NullColumnsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrichedRepository(db)
	ctx := context.Background()

	missing := enrichedRow("t1", true, false)
	resolved := enrichedRow("t2", false, false)
	rateAt := int64(90)
	resolved.ExchangeRate = decimal.NewNullDecimal(decimal.NewFromInt(10))
	resolved.RateTimestamp = &rateAt

	if err := repo.ReplaceAll(ctx, []*model.EnrichedTransaction{missing, resolved}, 100); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	rows, _ := repo.ListAll(ctx)
	if rows[0].DestinationAmountUSD.Valid || rows[0].RateTimestamp != nil {
		t.Error("missing-rate row should keep null usd amount and timestamp")
	}
	if !rows[1].DestinationAmountUSD.Valid || rows[1].RateTimestamp == nil || *rows[1].RateTimestamp != 90 {
		t.Error("resolved row lost rate fields")
	}
}

func TestEnrichedRepository_Coverage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrichedRepository(db)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, []*model.EnrichedTransaction{
		enrichedRow("t1", false, false),
		enrichedRow("t2", true, false),
		enrichedRow("t3", true, true),
		enrichedRow("t4", false, true),
	}, 100); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	stats, err := repo.Coverage(ctx)
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("total = %d", stats.Total)
	}
	if stats.MissingRate != 2 {
		t.Errorf("missing_rate = %d", stats.MissingRate)
	}
	if stats.MissingKycHistory != 2 {
		t.Errorf("missing_kyc_history = %d", stats.MissingKycHistory)
	}
}
