package services

import (
	"testing"

	"github.com/cryptofolio/backend/internal/models"
)

func TestCoinSearch(t *testing.T) {
	db := newTestDB(t)
	coins := NewCoinLookupService(db)

	err := coins.Seed([]models.CoinInfo{
		{CoinID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
		{CoinID: "bitcoin-cash", Symbol: "bch", Name: "Bitcoin Cash"},
		{CoinID: "ethereum", Symbol: "eth", Name: "Ethereum"},
	})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	results, err := coins.Search("bitcoin", 25)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 matches for bitcoin, got %d", len(results))
	}

	results, _ = coins.Search("eth", 25)
	if len(results) != 1 || results[0].CoinID != "ethereum" {
		t.Errorf("Expected ethereum by symbol, got %v", results)
	}
}

func TestCoinSeedFillsLedgerRegistrations(t *testing.T) {
	db := newTestDB(t)
	coins := NewCoinLookupService(db)

	// The ledger registers ids only; Seed backfills symbol and name
	db.Create(&models.CoinInfo{CoinID: "bitcoin"})

	if err := coins.Seed([]models.CoinInfo{{CoinID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	var info models.CoinInfo
	db.First(&info, "coin_id = ?", "bitcoin")
	if info.Symbol != "btc" || info.Name != "Bitcoin" {
		t.Errorf("Metadata not backfilled: %+v", info)
	}

	var count int64
	db.Model(&models.CoinInfo{}).Count(&count)
	if count != 1 {
		t.Errorf("Seed duplicated the row: %d", count)
	}
}
