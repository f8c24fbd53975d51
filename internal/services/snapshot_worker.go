package services

import (
	"context"
	"log"
	"time"
)

// SnapshotWorker records one fully-priced valuation per portfolio per
// day by driving the valuation engine in the background.
type SnapshotWorker struct {
	valuation *ValuationService
	registry  *RegistryService
	history   *HistoryService

	snapshotHour  int // hour of day to take snapshots (0-23)
	checkInterval time.Duration
}

func NewSnapshotWorker(valuation *ValuationService, registry *RegistryService, history *HistoryService, snapshotHour int) *SnapshotWorker {
	if snapshotHour < 0 || snapshotHour > 23 {
		snapshotHour = 23
	}
	return &SnapshotWorker{
		valuation:     valuation,
		registry:      registry,
		history:       history,
		snapshotHour:  snapshotHour,
		checkInterval: 15 * time.Minute,
	}
}

// Start begins the background snapshot loop. Blocks until ctx is done.
func (w *SnapshotWorker) Start(ctx context.Context) {
	log.Printf("Snapshot worker started: will record daily portfolio valuations at %02d:00", w.snapshotHour)

	// Catch up on startup in case the process was down at snapshot time.
	w.checkAndSnapshot(ctx)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot worker stopping...")
			return
		case <-ticker.C:
			w.checkAndSnapshot(ctx)
		}
	}
}

// checkAndSnapshot refreshes every portfolio that still needs a snapshot
// today. A refresh with any failed coin appends nothing (the valuation
// engine's gate), so the portfolio is retried on the next tick.
func (w *SnapshotWorker) checkAndSnapshot(ctx context.Context) {
	now := time.Now()
	if now.Hour() < w.snapshotHour {
		return
	}

	portfolios, err := w.registry.List()
	if err != nil {
		log.Printf("Snapshot worker: failed to list portfolios: %v", err)
		return
	}

	for _, p := range portfolios {
		done, err := w.history.HasEntryForDate(p.ID, now)
		if err != nil {
			log.Printf("Snapshot worker: failed to check history for %s: %v", p.ID, err)
			continue
		}
		if done {
			continue
		}

		snapshot, failed, err := w.valuation.RefreshPrices(ctx, p.ID)
		if err != nil {
			log.Printf("Snapshot worker: refresh failed for %s: %v", p.ID, err)
			continue
		}
		if len(failed) > 0 {
			log.Printf("Snapshot worker: %s snapshot deferred, unpriced coins: %v", p.Name, failed)
			continue
		}
		log.Printf("Snapshot worker: recorded snapshot for %s (total: %.2f %s)", p.Name, snapshot.TotalValue, snapshot.Currency)
	}
}
