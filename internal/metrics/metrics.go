// Package metrics provides Prometheus metrics for the cryptofolio backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofolio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptofolio_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Quote Fetcher Metrics
	QuoteFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofolio_quote_fetches_total",
			Help: "CoinGecko quote fetches by outcome",
		},
		[]string{"outcome"}, // "success" or "failure"
	)

	QuoteRateLimitFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofolio_quote_rate_limit_fallbacks_total",
			Help: "Unauthenticated requests that hit a 429 and retried with the API key",
		},
	)

	StablecoinShortCircuits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofolio_stablecoin_short_circuits_total",
			Help: "Quotes answered from the stablecoin allow-list without a network call",
		},
	)

	// Price Cache Metrics
	PriceCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofolio_price_cache_hits_total",
			Help: "Price cache lookups answered from memory",
		},
	)

	PriceCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofolio_price_cache_misses_total",
			Help: "Price cache lookups with no cached quote",
		},
	)

	// Valuation Metrics
	PortfolioValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptofolio_portfolio_value",
			Help: "Last computed portfolio value in its settlement currency",
		},
		[]string{"portfolio"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cryptofolio_refresh_duration_seconds",
			Help:    "Time taken for a full price refresh cycle",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	HistorySnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofolio_history_snapshots_total",
			Help: "Valuation snapshots persisted to history",
		},
	)
)
