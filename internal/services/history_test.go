package services

import (
	"testing"
	"time"

	"github.com/cryptofolio/backend/internal/models"
)

func TestHistoryAppendAndRead(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)

	base := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	for i, total := range []float64{100, 200, 300} {
		snapshot := &models.ValuationSnapshot{
			PortfolioID: "p1",
			Currency:    "usd",
			TotalValue:  total,
			TakenAt:     base.AddDate(0, 0, i),
		}
		if err := history.Append("p1", snapshot, snapshot.TakenAt); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	points, err := history.History("p1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(points))
	}

	// Most recent first
	if points[0].Snapshot.TotalValue != 300 || points[2].Snapshot.TotalValue != 100 {
		t.Errorf("Unexpected ordering: %v, %v, %v",
			points[0].Snapshot.TotalValue, points[1].Snapshot.TotalValue, points[2].Snapshot.TotalValue)
	}
}

func TestHistoryIsolatedPerPortfolio(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)

	history.Append("p1", &models.ValuationSnapshot{PortfolioID: "p1", TotalValue: 1}, time.Now())
	history.Append("p2", &models.ValuationSnapshot{PortfolioID: "p2", TotalValue: 2}, time.Now())

	points, _ := history.History("p1")
	if len(points) != 1 {
		t.Fatalf("Expected 1 point for p1, got %d", len(points))
	}
	if points[0].Snapshot.PortfolioID != "p1" {
		t.Errorf("Got another portfolio's snapshot: %s", points[0].Snapshot.PortfolioID)
	}
}

func TestHistorySkipsCorruptRows(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)

	history.Append("p1", &models.ValuationSnapshot{PortfolioID: "p1", TotalValue: 5}, time.Now())
	db.Create(&models.HistoryEntry{PortfolioID: "p1", PortfolioData: "{not json", LastUpdated: time.Now()})

	points, err := history.History("p1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("Expected corrupt row skipped, got %d points", len(points))
	}
}

func TestHasEntryForDate(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)

	day := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	history.Append("p1", &models.ValuationSnapshot{PortfolioID: "p1"}, day)

	has, err := history.HasEntryForDate("p1", day)
	if err != nil {
		t.Fatalf("HasEntryForDate failed: %v", err)
	}
	if !has {
		t.Error("Expected an entry on the snapshot day")
	}

	has, _ = history.HasEntryForDate("p1", day.AddDate(0, 0, 1))
	if has {
		t.Error("Expected no entry on the following day")
	}
}
