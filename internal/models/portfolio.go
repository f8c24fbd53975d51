package models

import (
	"time"
)

// Portfolio is a named collection of coin holdings valued in a single
// settlement currency. Portfolios are never hard-deleted; Deleted hides
// them from listings while keeping transactions and history queryable.
type Portfolio struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Currency  string    `json:"currency" gorm:"not null"` // lowercase code, e.g. "usd"
	Deleted   bool      `json:"deleted" gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePortfolioRequest struct {
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency" binding:"required"`
}

// PortfolioReport is the API shape for a portfolio valued with whatever
// quotes are currently cached.
type PortfolioReport struct {
	Portfolio  Portfolio         `json:"portfolio"`
	Snapshot   ValuationSnapshot `json:"snapshot"`
	TotalValue float64           `json:"total_value"`
}
