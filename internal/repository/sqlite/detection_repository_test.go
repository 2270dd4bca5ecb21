package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"smartdate/internal/dto"
	"smartdate/internal/model"
)

func newTestRepo(t *testing.T) *DetectionRepository {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "nested", "detections.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	repo := NewDetectionRepository(db)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDetectionRepository_InsertAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	records := []model.Record{
		{Timestamp: 100, Label: "alig", Confidence: 0.9},
		{Timestamp: 200, Label: "none", Confidence: 0},
		{Timestamp: 300, Label: "alig", Confidence: 0.8, Image: "det_300.jpg"},
		{Timestamp: 400, Label: "kenta", Confidence: 0.95},
	}
	for i := range records {
		if err := repo.Insert(ctx, &records[i]); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := repo.Recent(ctx, dto.HistoryFilter{})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(got))
	}
	if got[0].Label != "kenta" || got[3].Timestamp != 100 {
		t.Errorf("Expected newest first, got %+v", got)
	}

	got, err = repo.Recent(ctx, dto.HistoryFilter{Label: "alig", Limit: 1})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != 300 || got[0].Image != "det_300.jpg" {
		t.Errorf("Unexpected filtered result %+v", got)
	}
}

func TestDetectionRepository_RecentEmpty(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.Recent(context.Background(), dto.HistoryFilter{Label: "bessra"})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestDetectionRepository_InsertBatchAndStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

	err := repo.InsertBatch(ctx, []model.Record{
		{Timestamp: model.EpochSeconds(midnight.Add(-time.Hour)), Label: "alig", Confidence: 0.6},
		{Timestamp: model.EpochSeconds(midnight.Add(time.Hour)), Label: "alig", Confidence: 0.8},
		{Timestamp: model.EpochSeconds(midnight.Add(2 * time.Hour)), Label: "kenta", Confidence: 1.0},
	})
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	stats, err := repo.Stats(ctx, midnight)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("Expected total 3, got %d", stats.Total)
	}
	if stats.Today != 2 {
		t.Errorf("Expected 2 today, got %d", stats.Today)
	}
	if math.Abs(stats.AvgConfidence-0.8) > 1e-9 {
		t.Errorf("Expected average 0.8, got %v", stats.AvgConfidence)
	}
	if len(stats.ByLabel) != 2 || stats.ByLabel[0].Label != "alig" || stats.ByLabel[0].Count != 2 {
		t.Errorf("Unexpected per-label counts %+v", stats.ByLabel)
	}
}

func TestDetectionRepository_StatsEmpty(t *testing.T) {
	repo := newTestRepo(t)

	stats, err := repo.Stats(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 0 || stats.AvgConfidence != 0 || len(stats.ByLabel) != 0 {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
}
