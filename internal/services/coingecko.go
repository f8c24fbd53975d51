package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cryptofolio/backend/internal/metrics"
	"github.com/cryptofolio/backend/internal/models"
)

const (
	coinGeckoBaseURL        = "https://api.coingecko.com/api/v3"
	coinGeckoDefaultTimeout = 10 * time.Second

	// apiKeyHeader carries the demo API key. The key comes from process
	// configuration, never from source.
	apiKeyHeader = "x-cg-demo-api-key"

	// The public API allows roughly 30 calls/minute without a key.
	unauthenticatedRate  = rate.Limit(0.5) // one call per 2s
	unauthenticatedBurst = 5
)

// stablecoins always quote at 1.0 with flat changes under cost-saving
// mode, skipping the network entirely.
var stablecoins = map[string]bool{
	"usdd":         true,
	"usd-coin":     true,
	"tether":       true,
	"dai":          true,
	"husd":         true,
	"tusd":         true,
	"busd":         true,
	"aave-v3-usdt": true,
}

// CoinGeckoService fetches coin quotes from the CoinGecko API.
//
// In cost-saving mode requests go out unauthenticated first; a 429 triggers
// a single retry with the API key. Outside cost-saving mode every request
// carries the key. Successful quotes are written into the price cache
// before being returned, and a cache hit skips the network call entirely.
type CoinGeckoService struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	costSaving bool
	cache      *PriceCache
	limiter    *rate.Limiter
}

// coinGeckoCoinResponse is the subset of /coins/{id} we consume.
type coinGeckoCoinResponse struct {
	MarketData struct {
		CurrentPrice                       map[string]float64 `json:"current_price"`
		PriceChangePercentage1hInCurrency  map[string]float64 `json:"price_change_percentage_1h_in_currency"`
		PriceChangePercentage24hInCurrency map[string]float64 `json:"price_change_percentage_24h_in_currency"`
		PriceChangePercentage7dInCurrency  map[string]float64 `json:"price_change_percentage_7d_in_currency"`
	} `json:"market_data"`
}

// NewCoinGeckoService creates a new CoinGecko API service.
func NewCoinGeckoService(apiKey string, costSaving bool, cache *PriceCache) *CoinGeckoService {
	return &CoinGeckoService{
		client: &http.Client{
			Timeout: coinGeckoDefaultTimeout,
		},
		apiKey:     apiKey,
		baseURL:    coinGeckoBaseURL,
		costSaving: costSaving,
		cache:      cache,
		limiter:    rate.NewLimiter(unauthenticatedRate, unauthenticatedBurst),
	}
}

// CostSaving reports whether the service prefers unauthenticated requests.
func (s *CoinGeckoService) CostSaving() bool {
	return s.costSaving
}

// Ping checks API reachability. Used at startup for a connectivity log
// line; failures are not fatal.
func (s *CoinGeckoService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CoinGecko ping: status %d", resp.StatusCode)
	}
	return nil
}

// FetchQuote returns the quote for a coin in the given settlement
// currency. Failures come back as *models.QuoteFetchError so a batch
// refresh can aggregate them per coin instead of aborting.
func (s *CoinGeckoService) FetchQuote(ctx context.Context, coinID, currency string) (models.Quote, error) {
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	currency = strings.ToLower(strings.TrimSpace(currency))

	// A cache hit short-circuits the fetch; staleness is the caller's
	// problem (the valuation engine clears the cache before a refresh).
	if quote, ok := s.cache.Get(coinID); ok {
		return quote, nil
	}

	if s.costSaving && stablecoins[coinID] {
		metrics.StablecoinShortCircuits.Inc()
		quote := models.Quote{
			CoinID:    coinID,
			Currency:  currency,
			Price:     1.0,
			FetchedAt: time.Now(),
		}
		s.cache.Put(quote, "")
		return quote, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return models.Quote{}, &models.QuoteFetchError{CoinID: coinID, Err: err}
	}

	reqURL := fmt.Sprintf(
		"%s/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false",
		s.baseURL, coinID)

	resp, err := s.doRequest(ctx, reqURL)
	if err != nil {
		metrics.QuoteFetchesTotal.WithLabelValues("failure").Inc()
		return models.Quote{}, &models.QuoteFetchError{CoinID: coinID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.QuoteFetchesTotal.WithLabelValues("failure").Inc()
		return models.Quote{}, &models.QuoteFetchError{CoinID: coinID, Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.QuoteFetchesTotal.WithLabelValues("failure").Inc()
		return models.Quote{}, &models.QuoteFetchError{CoinID: coinID, Err: err}
	}

	var payload coinGeckoCoinResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		metrics.QuoteFetchesTotal.WithLabelValues("failure").Inc()
		return models.Quote{}, &models.QuoteFetchError{CoinID: coinID, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	price, ok := payload.MarketData.CurrentPrice[currency]
	if !ok {
		metrics.QuoteFetchesTotal.WithLabelValues("failure").Inc()
		return models.Quote{}, &models.QuoteFetchError{CoinID: coinID, Err: fmt.Errorf("no price in currency %q", currency)}
	}

	quote := models.Quote{
		CoinID:    coinID,
		Currency:  currency,
		Price:     price,
		Change1h:  payload.MarketData.PriceChangePercentage1hInCurrency[currency],
		Change24h: payload.MarketData.PriceChangePercentage24hInCurrency[currency],
		Change7d:  payload.MarketData.PriceChangePercentage7dInCurrency[currency],
		FetchedAt: time.Now(),
	}

	metrics.QuoteFetchesTotal.WithLabelValues("success").Inc()
	s.cache.Put(quote, string(raw))
	return quote, nil
}

// doRequest performs the GET, handling the cost-saving auth fallback:
// unauthenticated first, then one authenticated retry on a 429.
func (s *CoinGeckoService) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	if !s.costSaving {
		return s.get(ctx, reqURL, true)
	}

	resp, err := s.get(ctx, reqURL, false)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}

	// Rate limited without a key; retry once authenticated.
	resp.Body.Close()
	metrics.QuoteRateLimitFallbacks.Inc()
	return s.get(ctx, reqURL, true)
}

func (s *CoinGeckoService) get(ctx context.Context, reqURL string, authenticated bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if authenticated && s.apiKey != "" {
		req.Header.Set(apiKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	return resp, nil
}
