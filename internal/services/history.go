package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/cryptofolio/backend/internal/metrics"
	"github.com/cryptofolio/backend/internal/models"
)

// HistoryService persists valuation snapshots over time. Entries are
// append-only with no retention policy; unbounded growth is an accepted
// tradeoff for a single-user tool.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Append persists a snapshot for a portfolio. Callers gate this on a
// fully-priced snapshot - a partial valuation never enters the series.
func (s *HistoryService) Append(portfolioID string, snapshot *models.ValuationSnapshot, at time.Time) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	entry := models.HistoryEntry{
		PortfolioID:   portfolioID,
		PortfolioData: string(data),
		LastUpdated:   at,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	metrics.HistorySnapshotsTotal.Inc()
	return nil
}

// History returns a portfolio's snapshots, most recent first. Rows that
// fail to decode are skipped rather than failing the whole read.
func (s *HistoryService) History(portfolioID string) ([]models.HistoryPoint, error) {
	var entries []models.HistoryEntry
	err := s.db.Where("portfolio_id = ?", portfolioID).
		Order("last_updated DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	points := make([]models.HistoryPoint, 0, len(entries))
	for _, entry := range entries {
		var snapshot models.ValuationSnapshot
		if err := json.Unmarshal([]byte(entry.PortfolioData), &snapshot); err != nil {
			log.Printf("History: skipping undecodable entry %d for portfolio %s: %v", entry.ID, portfolioID, err)
			continue
		}
		points = append(points, models.HistoryPoint{
			Snapshot:    snapshot,
			LastUpdated: entry.LastUpdated,
		})
	}
	return points, nil
}

// Count returns the number of history entries for a portfolio.
func (s *HistoryService) Count(portfolioID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.HistoryEntry{}).
		Where("portfolio_id = ?", portfolioID).
		Count(&count).Error
	return count, err
}

// HasEntryForDate reports whether the portfolio already has a history
// entry on the given calendar day. Used by the snapshot worker to avoid
// duplicate daily snapshots.
func (s *HistoryService) HasEntryForDate(portfolioID string, date time.Time) (bool, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	var count int64
	err := s.db.Model(&models.HistoryEntry{}).
		Where("portfolio_id = ? AND last_updated >= ? AND last_updated < ?", portfolioID, startOfDay, endOfDay).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
