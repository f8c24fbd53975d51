package models

import (
	"time"
)

// Quote is a coin's price and percentage price changes in a settlement
// currency at the moment it was fetched.
type Quote struct {
	CoinID    string    `json:"coin_id"`
	Currency  string    `json:"currency"`
	Price     float64   `json:"price"`
	Change1h  float64   `json:"change_1h"`
	Change24h float64   `json:"change_24h"`
	Change7d  float64   `json:"change_7d"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CoinQuote is the persisted quote cache row. Refreshes append rows rather
// than overwriting, so the table doubles as a fetch audit log; reads take
// the most recently updated row per coin. RawData keeps the provider
// payload for audit only - valuation always uses the typed columns.
type CoinQuote struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CoinID      string    `json:"coin_id" gorm:"not null;index"`
	Currency    string    `json:"currency" gorm:"not null"`
	Price       float64   `json:"price"`
	Change1h    float64   `json:"change_1h"`
	Change24h   float64   `json:"change_24h"`
	Change7d    float64   `json:"change_7d"`
	RawData     string    `json:"-"`
	LastUpdated time.Time `json:"last_updated" gorm:"index"`
}

func (CoinQuote) TableName() string {
	return "coins"
}

// Quote converts the stored row back to a Quote.
func (c CoinQuote) Quote() Quote {
	return Quote{
		CoinID:    c.CoinID,
		Currency:  c.Currency,
		Price:     c.Price,
		Change1h:  c.Change1h,
		Change24h: c.Change24h,
		Change7d:  c.Change7d,
		FetchedAt: c.LastUpdated,
	}
}

// CoinInfo is the coin reference table used for search/autocomplete.
// The ledger registers unseen coins here on first transaction.
type CoinInfo struct {
	CoinID string `json:"coin_id" gorm:"primaryKey"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (CoinInfo) TableName() string {
	return "coins_ids"
}
