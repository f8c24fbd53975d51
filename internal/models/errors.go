package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHoldings rejects a sell (or edit) that would drive a
	// coin's net holdings below zero. Nothing is written when returned.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrPortfolioNotFound covers both unknown and soft-deleted portfolios.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	ErrTransactionNotFound = errors.New("transaction not found")
)

// QuoteFetchError marks a single coin's failed price fetch. It is never
// fatal to a refresh batch; the valuation engine aggregates these and
// skips history persistence for the cycle.
type QuoteFetchError struct {
	CoinID string
	Status int // HTTP status, 0 for transport errors
	Err    error
}

func (e *QuoteFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("quote fetch failed for %s: status %d", e.CoinID, e.Status)
	}
	return fmt.Sprintf("quote fetch failed for %s: %v", e.CoinID, e.Err)
}

func (e *QuoteFetchError) Unwrap() error {
	return e.Err
}

// MalformedImportError aborts a batch import, naming the record that
// failed validation. Entries applied before the abort are kept.
type MalformedImportError struct {
	CoinID string
	Reason string
}

func (e *MalformedImportError) Error() string {
	return fmt.Sprintf("malformed import entry for %q: %s", e.CoinID, e.Reason)
}
