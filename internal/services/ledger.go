package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cryptofolio/backend/internal/models"
)

// holdingsEpsilon absorbs float summation noise when checking the
// non-negative running balance; selling an exact full position must pass.
const holdingsEpsilon = 1e-9

// LedgerService owns the append-only transaction log. Holdings are always
// derived by summing signed amounts; there is no separate balance column
// to drift out of sync.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Record appends a buy or sell to a portfolio's ledger. A sell exceeding
// the coin's current net holdings is rejected with
// models.ErrInsufficientHoldings and writes nothing. The stored amount's
// sign is normalized to the transaction type, and the coin is registered
// in the reference table if unseen.
func (s *LedgerService) Record(portfolioID, coinID string, amount, pricePerCoin float64, date time.Time, kind models.TransactionType) (*models.Transaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", kind)
	}
	if amount == 0 {
		return nil, fmt.Errorf("transaction amount must be non-zero")
	}
	if date.IsZero() {
		date = time.Now()
	}

	signed := math.Abs(amount)
	if kind == models.TransactionSell {
		holdings, err := s.NetHoldings(portfolioID, coinID)
		if err != nil {
			return nil, err
		}
		if signed > holdings+holdingsEpsilon {
			return nil, models.ErrInsufficientHoldings
		}
		signed = -signed
	}

	txn := models.Transaction{
		PortfolioID:  portfolioID,
		CoinID:       coinID,
		Amount:       signed,
		PricePerCoin: pricePerCoin,
		Date:         date,
		Type:         kind,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := registerCoin(tx, coinID); err != nil {
			return err
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	return &txn, nil
}

// NetHoldings returns the sum of signed amounts for a (portfolio, coin)
// pair, 0 when no transactions exist.
func (s *LedgerService) NetHoldings(portfolioID, coinID string) (float64, error) {
	var total float64
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("portfolio_id = ? AND coin_id = ?", portfolioID, coinID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum holdings: %w", err)
	}
	return total, nil
}

// HoldingsByCoin aggregates net holdings across every coin ever transacted
// for the portfolio. Coins whose net holding is currently zero are
// included; callers decide whether to filter them.
func (s *LedgerService) HoldingsByCoin(portfolioID string) (map[string]float64, error) {
	type row struct {
		CoinID string
		Total  float64
	}
	var rows []row
	err := s.db.Model(&models.Transaction{}).
		Select("coin_id, COALESCE(SUM(amount), 0) as total").
		Where("portfolio_id = ?", portfolioID).
		Group("coin_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate holdings: %w", err)
	}

	holdings := make(map[string]float64, len(rows))
	for _, r := range rows {
		holdings[r.CoinID] = r.Total
	}
	return holdings, nil
}

// List returns a portfolio's transactions, newest first.
func (s *LedgerService) List(portfolioID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.Where("portfolio_id = ?", portfolioID).
		Order("date DESC, id DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// Update rewrites a transaction's amount, price, and date in place, then
// re-validates the full running balance for the affected (portfolio,
// coin). An edit that would drive holdings negative at any point in the
// ledger is rolled back with models.ErrInsufficientHoldings.
func (s *LedgerService) Update(txID uint, req models.UpdateTransactionRequest) (*models.Transaction, error) {
	var updated models.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		if err := tx.First(&txn, txID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrTransactionNotFound
			}
			return err
		}

		if req.Amount != nil {
			if *req.Amount == 0 {
				return fmt.Errorf("transaction amount must be non-zero")
			}
			// Sign stays bound to the transaction type.
			signed := math.Abs(*req.Amount)
			if txn.Type == models.TransactionSell {
				signed = -signed
			}
			txn.Amount = signed
		}
		if req.PricePerCoin != nil {
			txn.PricePerCoin = *req.PricePerCoin
		}
		if req.Date != nil {
			txn.Date = *req.Date
		}

		if err := tx.Save(&txn).Error; err != nil {
			return err
		}

		if err := validateRunningBalance(tx, txn.PortfolioID, txn.CoinID); err != nil {
			return err
		}

		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// Import applies a batch of transactions, one entry per coin. Entries are
// applied in coin id order; the first malformed entry aborts the import
// with *models.MalformedImportError. Entries applied before the abort are
// kept - there is no batch rollback.
func (s *LedgerService) Import(portfolioID string, req models.ImportRequest) (int, error) {
	coins := make([]string, 0, len(req))
	for coinID := range req {
		coins = append(coins, coinID)
	}
	sort.Strings(coins)

	applied := 0
	for _, coinID := range coins {
		entry := req[coinID]

		kind := models.TransactionType(entry.TransactionType)
		if !kind.Valid() {
			return applied, &models.MalformedImportError{CoinID: coinID, Reason: fmt.Sprintf("unknown transaction type %q", entry.TransactionType)}
		}
		if entry.Amount <= 0 {
			return applied, &models.MalformedImportError{CoinID: coinID, Reason: "amount must be positive"}
		}
		date, err := parseImportDate(entry.Date)
		if err != nil {
			return applied, &models.MalformedImportError{CoinID: coinID, Reason: fmt.Sprintf("bad date %q", entry.Date)}
		}

		if _, err := s.Record(portfolioID, coinID, entry.Amount, entry.PricePerCoin, date, kind); err != nil {
			return applied, err
		}
		applied++
	}

	log.Printf("Ledger: imported %d transactions into portfolio %s", applied, portfolioID)
	return applied, nil
}

// registerCoin adds a coin to the reference table if unseen. Idempotent.
func registerCoin(tx *gorm.DB, coinID string) error {
	info := models.CoinInfo{CoinID: coinID}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&info).Error
}

// validateRunningBalance replays a coin's ledger in date order and fails
// if net holdings ever dip below zero.
func validateRunningBalance(tx *gorm.DB, portfolioID, coinID string) error {
	var txns []models.Transaction
	err := tx.Where("portfolio_id = ? AND coin_id = ?", portfolioID, coinID).
		Order("date ASC, id ASC").
		Find(&txns).Error
	if err != nil {
		return err
	}

	running := 0.0
	for _, t := range txns {
		running += t.Amount
		if running < -holdingsEpsilon {
			return models.ErrInsufficientHoldings
		}
	}
	return nil
}

func parseImportDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
