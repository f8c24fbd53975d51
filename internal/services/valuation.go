package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/cryptofolio/backend/internal/metrics"
	"github.com/cryptofolio/backend/internal/models"
)

// ValuationService derives a portfolio's current value from the ledger
// and cached quotes, and runs batch price refreshes.
//
// The failure-containment policy lives here: a refresh where any coin's
// fetch fails still yields a usable on-screen snapshot, but nothing is
// written to history for that cycle. Only fully-priced snapshots enter
// the permanent series.
type ValuationService struct {
	registry *RegistryService
	ledger   *LedgerService
	quotes   *CoinGeckoService
	cache    *PriceCache
	history  *HistoryService
}

func NewValuationService(registry *RegistryService, ledger *LedgerService, quotes *CoinGeckoService, cache *PriceCache, history *HistoryService) *ValuationService {
	return &ValuationService{
		registry: registry,
		ledger:   ledger,
		quotes:   quotes,
		cache:    cache,
		history:  history,
	}
}

// RefreshPrices re-fetches quotes for every coin the portfolio has ever
// transacted, one coin at a time. The cache is cleared first so every
// coin gets a fresh fetch. Returns the resulting snapshot and the ids of
// coins whose fetch failed; the snapshot was appended to history only if
// that list is empty.
func (s *ValuationService) RefreshPrices(ctx context.Context, portfolioID string) (*models.ValuationSnapshot, []string, error) {
	start := time.Now()

	p, err := s.registry.Get(portfolioID)
	if err != nil {
		return nil, nil, err
	}

	holdings, err := s.ledger.HoldingsByCoin(p.ID)
	if err != nil {
		return nil, nil, err
	}

	// Fresh cycle: drop session quotes so nothing stale leaks into the
	// snapshot. Persisted rows remain as audit history.
	s.cache.Clear()

	var failed []string
	for _, coinID := range sortedCoins(holdings) {
		if _, err := s.quotes.FetchQuote(ctx, coinID, p.Currency); err != nil {
			log.Printf("Valuation: quote fetch failed for %s: %v", coinID, err)
			failed = append(failed, coinID)
		}
	}

	snapshot := s.buildSnapshot(p, holdings)

	if len(failed) == 0 {
		if err := s.history.Append(p.ID, snapshot, snapshot.TakenAt); err != nil {
			return nil, nil, err
		}
	} else {
		log.Printf("Valuation: skipping history for portfolio %s, %d of %d coins failed to price", p.ID, len(failed), len(holdings))
	}

	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	metrics.PortfolioValue.WithLabelValues(p.ID).Set(snapshot.TotalValue)

	return snapshot, failed, nil
}

// CurrentValue values the portfolio against whatever quotes are cached
// right now; it never triggers a fetch. Coins with no cached quote are
// reported as unpriced and excluded from the total rather than failing
// the computation.
func (s *ValuationService) CurrentValue(portfolioID string) (*models.ValuationSnapshot, error) {
	p, err := s.registry.Get(portfolioID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.ledger.HoldingsByCoin(p.ID)
	if err != nil {
		return nil, err
	}

	return s.buildSnapshot(p, holdings), nil
}

// buildSnapshot assembles a valuation from cached quotes. No rounding:
// two-decimal formatting is a presentation concern.
func (s *ValuationService) buildSnapshot(p *models.Portfolio, holdings map[string]float64) *models.ValuationSnapshot {
	snapshot := &models.ValuationSnapshot{
		PortfolioID: p.ID,
		Currency:    p.Currency,
		TakenAt:     time.Now(),
	}

	for _, coinID := range sortedCoins(holdings) {
		amount := holdings[coinID]
		pos := models.Position{
			CoinID: coinID,
			Amount: amount,
		}

		if quote, ok := s.cache.Get(coinID); ok {
			pos.Priced = true
			pos.Price = quote.Price
			pos.Change1h = quote.Change1h
			pos.Change24h = quote.Change24h
			pos.Change7d = quote.Change7d
			pos.Value = amount * quote.Price
			snapshot.TotalValue += pos.Value
		} else {
			snapshot.UnpricedCoins = append(snapshot.UnpricedCoins, coinID)
		}

		snapshot.Positions = append(snapshot.Positions, pos)
	}

	return snapshot
}

func sortedCoins(holdings map[string]float64) []string {
	coins := make([]string, 0, len(holdings))
	for coinID := range holdings {
		coins = append(coins, coinID)
	}
	sort.Strings(coins)
	return coins
}
