package repository

import (
	"context"
	"testing"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

func ptrInt64(v int64) *int64 {
	return &v
}

func TestKycRepository_ApplyDelta(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKycRepository(db)
	ctx := context.Background()

	// 首次观测: 只有插入
	inserts := []*model.KycSnapshot{
		{RecordID: "r1", UserID: "u1", KycLevel: "L0", ValidFrom: 100},
	}
	if err := repo.ApplyDelta(ctx, inserts, nil, 100); err != nil {
		t.Fatalf("ApplyDelta failed: %v", err)
	}

	// 等级变化: 关闭 r1, 插入 r2
	closes := []*model.KycSnapshot{
		{RecordID: "r1", UserID: "u1", KycLevel: "L0", ValidFrom: 100, ValidTo: ptrInt64(500)},
	}
	inserts = []*model.KycSnapshot{
		{RecordID: "r2", UserID: "u1", KycLevel: "L1", ValidFrom: 500},
	}
	if err := repo.ApplyDelta(ctx, inserts, closes, 100); err != nil {
		t.Fatalf("second ApplyDelta failed: %v", err)
	}

	history, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(history))
	}
	if history[0].ValidTo == nil || *history[0].ValidTo != 500 {
		t.Errorf("first interval should be closed at 500: %v", history[0].ValidTo)
	}
	if !history[1].IsOpen() {
		t.Error("second interval should stay open")
	}
}

func TestKycRepository_LevelAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKycRepository(db)
	ctx := context.Background()

	inserts := []*model.KycSnapshot{
		{RecordID: "r1", UserID: "u1", KycLevel: "L0", ValidFrom: 100, ValidTo: ptrInt64(500)},
		{RecordID: "r2", UserID: "u1", KycLevel: "L2", ValidFrom: 500},
	}
	if err := repo.ApplyDelta(ctx, inserts, nil, 100); err != nil {
		t.Fatalf("ApplyDelta failed: %v", err)
	}

	cases := []struct {
		at   int64
		want string
	}{
		{99, ""},   // 首个区间之前
		{100, "L0"},
		{499, "L0"}, // 半开区间: valid_to 不含
		{500, "L2"},
		{99_999, "L2"}, // 开放区间覆盖未来
	}
	for _, tc := range cases {
		got, err := repo.LevelAt(ctx, "u1", tc.at)
		if err != nil {
			t.Fatalf("LevelAt(%d) failed: %v", tc.at, err)
		}
		if got != tc.want {
			t.Errorf("LevelAt(%d) = %q, want %q", tc.at, got, tc.want)
		}
	}

	// 未知用户
	got, err := repo.LevelAt(ctx, "ghost", 500)
	if err != nil || got != "" {
		t.Errorf("unknown user should return empty level, got %q err %v", got, err)
	}
}
