package models

import (
	"time"
)

// TransactionType distinguishes buys from sells. The stored amount's sign
// always matches the type: positive for buys, negative for sells.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// Transaction is one buy or sell event in a portfolio's ledger. The ledger
// is append-only; rows change only through an explicit edit, which
// re-validates the running balance for the coin.
type Transaction struct {
	ID           uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	PortfolioID  string          `json:"portfolio_id" gorm:"not null;index"`
	CoinID       string          `json:"coin_id" gorm:"not null;index"`
	Amount       float64         `json:"amount"` // signed: positive buy, negative sell
	PricePerCoin float64         `json:"price_per_coin"`
	Date         time.Time       `json:"date"`
	Type         TransactionType `json:"transaction_type" gorm:"column:transaction_type;not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type RecordTransactionRequest struct {
	CoinID       string          `json:"coin_id" binding:"required"`
	Amount       float64         `json:"amount" binding:"required"`
	PricePerCoin float64         `json:"price_per_coin"`
	Date         time.Time       `json:"date"`
	Type         TransactionType `json:"transaction_type" binding:"required"`
}

type UpdateTransactionRequest struct {
	Amount       *float64   `json:"amount"`
	PricePerCoin *float64   `json:"price_per_coin"`
	Date         *time.Time `json:"date"`
}

// ImportEntry is one coin's row in a batch transaction import.
type ImportEntry struct {
	Amount          float64 `json:"amount"`
	PricePerCoin    float64 `json:"price_per_coin"`
	Date            string  `json:"date"` // RFC 3339 or YYYY-MM-DD
	TransactionType string  `json:"transaction_type"`
}

// ImportRequest maps coin id to the transaction to record for it.
type ImportRequest map[string]ImportEntry
