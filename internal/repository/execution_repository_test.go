package repository

import (
	"context"
	"testing"
	"time"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

func TestExecutionRepository_CreateAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExecutionRepository(db)
	ctx := context.Background()

	exec := &model.PipelineExecution{
		StageName: "staging",
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UnixMilli(),
	}
	if err := repo.Create(ctx, exec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if exec.ID == 0 {
		t.Error("expected id to be set after create")
	}
	if exec.CreatedAt == 0 {
		t.Error("expected created_at to be set")
	}

	finishedAt := time.Now().UnixMilli()
	duration := 42
	exec.Status = model.RunStatusSuccess
	exec.FinishedAt = &finishedAt
	exec.DurationMs = &duration
	exec.Result = model.JSONResult{"processed_count": 10}
	if err := repo.Update(ctx, exec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	var loaded model.PipelineExecution
	if err := db.First(&loaded, exec.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Status != model.RunStatusSuccess {
		t.Errorf("status = %s", loaded.Status)
	}
	if loaded.Result == nil {
		t.Fatal("result should round-trip")
	}
	if got, ok := loaded.Result["processed_count"].(float64); !ok || got != 10 {
		t.Errorf("result payload wrong: %v", loaded.Result)
	}
}

func TestExecutionRepository_GetLatestByStage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExecutionRepository(db)
	ctx := context.Background()

	// 无记录时返回 nil, nil
	latest, err := repo.GetLatestByStage(ctx, "staging")
	if err != nil || latest != nil {
		t.Fatalf("expected nil for empty table, got %v / %v", latest, err)
	}

	repo.Create(ctx, &model.PipelineExecution{StageName: "staging", Status: model.RunStatusSuccess, StartedAt: 1000})
	repo.Create(ctx, &model.PipelineExecution{StageName: "staging", Status: model.RunStatusFailed, StartedAt: 2000})
	repo.Create(ctx, &model.PipelineExecution{StageName: "marts", Status: model.RunStatusSuccess, StartedAt: 3000})

	latest, err = repo.GetLatestByStage(ctx, "staging")
	if err != nil {
		t.Fatalf("GetLatestByStage failed: %v", err)
	}
	if latest.StartedAt != 2000 || latest.Status != model.RunStatusFailed {
		t.Errorf("wrong latest record: %+v", latest)
	}
}

func TestExecutionRepository_ListRecentAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExecutionRepository(db)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		repo.Create(ctx, &model.PipelineExecution{
			StageName: "staging",
			Status:    model.RunStatusSuccess,
			StartedAt: i * 1000,
		})
	}
	repo.Create(ctx, &model.PipelineExecution{StageName: "staging", Status: model.RunStatusFailed, StartedAt: 9000})

	recent, err := repo.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	if recent[0].StartedAt != 9000 {
		t.Errorf("expected newest first, got %d", recent[0].StartedAt)
	}

	failed, err := repo.CountByStatus(ctx, model.RunStatusFailed)
	if err != nil || failed != 1 {
		t.Errorf("CountByStatus(failed) = %d, err %v", failed, err)
	}
}

func TestExecutionRepository_CleanupOldRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExecutionRepository(db)
	ctx := context.Background()

	repo.Create(ctx, &model.PipelineExecution{StageName: "staging", Status: model.RunStatusSuccess, StartedAt: 1000})
	repo.Create(ctx, &model.PipelineExecution{StageName: "staging", Status: model.RunStatusSuccess, StartedAt: 5000})

	deleted, err := repo.CleanupOldRecords(ctx, 3000)
	if err != nil {
		t.Fatalf("CleanupOldRecords failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	remaining, _ := repo.ListRecent(ctx, 10)
	if len(remaining) != 1 || remaining[0].StartedAt != 5000 {
		t.Errorf("wrong remaining records: %d", len(remaining))
	}
}
