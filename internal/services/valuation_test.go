package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/cryptofolio/backend/internal/models"
)

// quoteHandler serves /coins/{id} with a fixed price per coin; coins in
// fail get a 500.
func quoteHandler(prices map[string]float64, fail map[string]bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		coinID := strings.TrimPrefix(r.URL.Path, "/coins/")
		if fail[coinID] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		price, ok := prices[coinID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"market_data": {
			"current_price": {"usd": %g},
			"price_change_percentage_1h_in_currency": {"usd": 0.1},
			"price_change_percentage_24h_in_currency": {"usd": 0.2},
			"price_change_percentage_7d_in_currency": {"usd": 0.3}
		}}`, price)
	})
}

type valuationFixture struct {
	registry  *RegistryService
	ledger    *LedgerService
	history   *HistoryService
	valuation *ValuationService
	cache     *PriceCache
	portfolio *models.Portfolio
}

func newValuationFixture(t *testing.T, handler http.Handler) *valuationFixture {
	t.Helper()

	db := newTestDB(t)
	cache := newTestCache(t, db)

	gecko, _ := newTestGecko(t, handler, "", true)
	gecko.cache = cache

	registry := NewRegistryService(db)
	ledger := NewLedgerService(db)
	history := NewHistoryService(db)
	valuation := NewValuationService(registry, ledger, gecko, cache, history)

	p, err := registry.Create("Main", "USD")
	if err != nil {
		t.Fatalf("failed to create portfolio: %v", err)
	}

	return &valuationFixture{
		registry:  registry,
		ledger:    ledger,
		history:   history,
		valuation: valuation,
		cache:     cache,
		portfolio: p,
	}
}

func TestRefreshPricesAllSucceedAppendsHistory(t *testing.T) {
	f := newValuationFixture(t, quoteHandler(map[string]float64{
		"bitcoin":  50000,
		"ethereum": 2500,
	}, nil))

	f.ledger.Record(f.portfolio.ID, "bitcoin", 2, 100, time.Now(), models.TransactionBuy)
	f.ledger.Record(f.portfolio.ID, "ethereum", 4, 2000, time.Now(), models.TransactionBuy)

	snapshot, failed, err := f.valuation.RefreshPrices(context.Background(), f.portfolio.ID)
	if err != nil {
		t.Fatalf("RefreshPrices failed: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("Expected no failed coins, got %v", failed)
	}

	want := 2*50000.0 + 4*2500.0
	if snapshot.TotalValue != want {
		t.Errorf("Expected total %v, got %v", want, snapshot.TotalValue)
	}

	count, _ := f.history.Count(f.portfolio.ID)
	if count != 1 {
		t.Errorf("Expected 1 history entry, got %d", count)
	}

	// The persisted snapshot matches an immediate CurrentValue
	current, err := f.valuation.CurrentValue(f.portfolio.ID)
	if err != nil {
		t.Fatalf("CurrentValue failed: %v", err)
	}
	if current.TotalValue != snapshot.TotalValue {
		t.Errorf("CurrentValue %v != refreshed snapshot %v", current.TotalValue, snapshot.TotalValue)
	}

	points, err := f.history.History(f.portfolio.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("Expected 1 history point, got %d", len(points))
	}
	if points[0].Snapshot.TotalValue != snapshot.TotalValue {
		t.Errorf("Stored snapshot total %v != %v", points[0].Snapshot.TotalValue, snapshot.TotalValue)
	}
}

func TestRefreshPricesPartialFailureSkipsHistory(t *testing.T) {
	f := newValuationFixture(t, quoteHandler(
		map[string]float64{"bitcoin": 50000},
		map[string]bool{"ethereum": true},
	))

	f.ledger.Record(f.portfolio.ID, "bitcoin", 1, 100, time.Now(), models.TransactionBuy)
	f.ledger.Record(f.portfolio.ID, "ethereum", 2, 2000, time.Now(), models.TransactionBuy)

	snapshot, failed, err := f.valuation.RefreshPrices(context.Background(), f.portfolio.ID)
	if err != nil {
		t.Fatalf("RefreshPrices failed: %v", err)
	}
	if len(failed) != 1 || failed[0] != "ethereum" {
		t.Fatalf("Expected ethereum to fail, got %v", failed)
	}

	// Partial data usable for display: priced coin only in the total
	if snapshot.TotalValue != 50000 {
		t.Errorf("Expected total 50000 from priced coins, got %v", snapshot.TotalValue)
	}
	if len(snapshot.UnpricedCoins) != 1 || snapshot.UnpricedCoins[0] != "ethereum" {
		t.Errorf("Expected ethereum flagged unpriced, got %v", snapshot.UnpricedCoins)
	}

	// But nothing enters the permanent series
	count, _ := f.history.Count(f.portfolio.ID)
	if count != 0 {
		t.Errorf("Expected no history entries after partial failure, got %d", count)
	}
}

func TestCurrentValueUsesCacheOnly(t *testing.T) {
	f := newValuationFixture(t, quoteHandler(map[string]float64{"bitcoin": 50000}, nil))

	f.ledger.Record(f.portfolio.ID, "bitcoin", 2, 100, time.Now(), models.TransactionBuy)
	f.ledger.Record(f.portfolio.ID, "ethereum", 1, 2000, time.Now(), models.TransactionBuy)

	// Only bitcoin is cached
	f.cache.Put(models.Quote{CoinID: "bitcoin", Currency: "usd", Price: 48000, FetchedAt: time.Now()}, "")

	snapshot, err := f.valuation.CurrentValue(f.portfolio.ID)
	if err != nil {
		t.Fatalf("CurrentValue failed: %v", err)
	}

	if snapshot.TotalValue != 96000 {
		t.Errorf("Expected total 96000, got %v", snapshot.TotalValue)
	}
	if len(snapshot.UnpricedCoins) != 1 || snapshot.UnpricedCoins[0] != "ethereum" {
		t.Errorf("Expected ethereum unpriced, got %v", snapshot.UnpricedCoins)
	}
	if len(snapshot.Positions) != 2 {
		t.Errorf("Expected 2 positions, got %d", len(snapshot.Positions))
	}
	for _, pos := range snapshot.Positions {
		if pos.CoinID == "ethereum" && pos.Priced {
			t.Error("Ethereum should be unpriced")
		}
	}
}

func TestCurrentValueUnknownPortfolio(t *testing.T) {
	f := newValuationFixture(t, quoteHandler(nil, nil))

	if _, err := f.valuation.CurrentValue("missing"); err != models.ErrPortfolioNotFound {
		t.Errorf("Expected ErrPortfolioNotFound, got %v", err)
	}
}

func TestRefreshClearsStaleCache(t *testing.T) {
	f := newValuationFixture(t, quoteHandler(map[string]float64{"bitcoin": 60000}, nil))

	f.ledger.Record(f.portfolio.ID, "bitcoin", 1, 100, time.Now(), models.TransactionBuy)

	// Stale quote in cache; the refresh must replace it, not reuse it
	f.cache.Put(models.Quote{CoinID: "bitcoin", Currency: "usd", Price: 10, FetchedAt: time.Now()}, "")

	snapshot, failed, err := f.valuation.RefreshPrices(context.Background(), f.portfolio.ID)
	if err != nil || len(failed) != 0 {
		t.Fatalf("RefreshPrices failed: %v (failed %v)", err, failed)
	}
	if snapshot.TotalValue != 60000 {
		t.Errorf("Expected refreshed price 60000, got %v", snapshot.TotalValue)
	}
}

func TestEndToEndScenario(t *testing.T) {
	f := newValuationFixture(t, quoteHandler(map[string]float64{"bitcoin": 50000}, nil))

	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	if _, err := f.ledger.Record(f.portfolio.ID, "bitcoin", 2, 100, t1, models.TransactionBuy); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := f.ledger.Record(f.portfolio.ID, "bitcoin", 1, 150, t2, models.TransactionSell); err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	net, _ := f.ledger.NetHoldings(f.portfolio.ID, "bitcoin")
	if net != 1 {
		t.Fatalf("Expected net holdings 1, got %v", net)
	}

	if _, err := f.ledger.Record(f.portfolio.ID, "bitcoin", 5, 150, time.Now(), models.TransactionSell); err != models.ErrInsufficientHoldings {
		t.Fatalf("Expected ErrInsufficientHoldings, got %v", err)
	}

	net, _ = f.ledger.NetHoldings(f.portfolio.ID, "bitcoin")
	if net != 1 {
		t.Errorf("Holdings changed after rejected sell: %v", net)
	}
}

// rate limiter sanity: the fixture disables pacing, the default does not.
func TestDefaultLimiterConfigured(t *testing.T) {
	cache, _ := NewPriceCache(nil, 0)
	svc := NewCoinGeckoService("", true, cache)
	if svc.limiter.Limit() == rate.Inf {
		t.Error("Default service should pace requests")
	}
}
