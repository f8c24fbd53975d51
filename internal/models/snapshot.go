package models

import (
	"time"
)

// Position is one coin's slice of a valuation snapshot. Priced is false
// when no quote was available; unpriced positions carry zero price/value
// and are excluded from the snapshot total.
type Position struct {
	CoinID    string  `json:"coin_id"`
	Amount    float64 `json:"amount"`
	Price     float64 `json:"price"`
	Change1h  float64 `json:"change_1h"`
	Change24h float64 `json:"change_24h"`
	Change7d  float64 `json:"change_7d"`
	Value     float64 `json:"value"`
	Priced    bool    `json:"priced"`
}

// ValuationSnapshot is a portfolio's holdings valued at a point in time.
// TotalValue sums priced positions only; no rounding is applied here -
// display formatting is the presentation layer's concern.
type ValuationSnapshot struct {
	PortfolioID   string     `json:"portfolio_id"`
	Currency      string     `json:"currency"`
	Positions     []Position `json:"positions"`
	TotalValue    float64    `json:"total_value"`
	UnpricedCoins []string   `json:"unpriced_coins,omitempty"`
	TakenAt       time.Time  `json:"taken_at"`
}

// HistoryEntry persists a fully-priced valuation snapshot. Entries are
// append-only and read most recent first.
type HistoryEntry struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	PortfolioID   string    `json:"portfolio_id" gorm:"not null;index"`
	PortfolioData string    `json:"-"` // serialized ValuationSnapshot
	LastUpdated   time.Time `json:"last_updated" gorm:"index"`
}

func (HistoryEntry) TableName() string {
	return "history"
}

// HistoryPoint is the decoded API shape of a history entry.
type HistoryPoint struct {
	Snapshot    ValuationSnapshot `json:"snapshot"`
	LastUpdated time.Time         `json:"last_updated"`
}
