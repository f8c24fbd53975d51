package services

import (
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/cryptofolio/backend/internal/metrics"
	"github.com/cryptofolio/backend/internal/models"
)

const defaultCacheSize = 256

// PriceCache holds the last-known quote per coin. The memory tier answers
// lookups during a session; every Put is also written through to the coins
// table, which accumulates rows as a fetch audit log. Cached quotes are
// never expired automatically - the valuation engine calls Clear at the
// start of each refresh cycle to force fresh fetches.
type PriceCache struct {
	db  *gorm.DB
	mem *lru.Cache[string, models.Quote]
}

// NewPriceCache creates a cache backed by db. size <= 0 uses the default.
func NewPriceCache(db *gorm.DB, size int) (*PriceCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	mem, err := lru.New[string, models.Quote](size)
	if err != nil {
		return nil, err
	}
	return &PriceCache{db: db, mem: mem}, nil
}

// Load warms the memory tier from persisted rows, most recent row per
// coin winning. Missing or unreadable storage degrades to an empty cache.
func (c *PriceCache) Load() {
	if c.db == nil {
		return
	}

	var rows []models.CoinQuote
	if err := c.db.Order("last_updated ASC").Find(&rows).Error; err != nil {
		log.Printf("Price cache: failed to load persisted quotes: %v", err)
		return
	}

	loaded := 0
	for _, row := range rows {
		if row.CoinID == "" {
			continue
		}
		c.mem.Add(row.CoinID, row.Quote())
		loaded++
	}
	if loaded > 0 {
		log.Printf("Price cache: loaded %d persisted quotes (%d coins)", loaded, c.mem.Len())
	}
}

// Get returns the cached quote for a coin, if any.
func (c *PriceCache) Get(coinID string) (models.Quote, bool) {
	quote, ok := c.mem.Get(coinID)
	if ok {
		metrics.PriceCacheHits.Inc()
	} else {
		metrics.PriceCacheMisses.Inc()
	}
	return quote, ok
}

// Put stores a quote in memory and appends it to the coins table. The
// persistent write is best-effort; a storage error never fails the Put.
func (c *PriceCache) Put(quote models.Quote, rawData string) {
	c.mem.Add(quote.CoinID, quote)

	if c.db == nil {
		return
	}
	row := models.CoinQuote{
		CoinID:      quote.CoinID,
		Currency:    quote.Currency,
		Price:       quote.Price,
		Change1h:    quote.Change1h,
		Change24h:   quote.Change24h,
		Change7d:    quote.Change7d,
		RawData:     rawData,
		LastUpdated: quote.FetchedAt,
	}
	if err := c.db.Create(&row).Error; err != nil {
		log.Printf("Price cache: failed to persist quote for %s: %v", quote.CoinID, err)
	}
}

// Clear drops the memory tier. Persisted rows stay for audit.
func (c *PriceCache) Clear() {
	c.mem.Purge()
}

// Len returns the number of coins currently cached in memory.
func (c *PriceCache) Len() int {
	return c.mem.Len()
}

// LastUpdated returns the fetch time of the newest cached quote, or the
// zero time when the cache is empty.
func (c *PriceCache) LastUpdated() time.Time {
	var newest time.Time
	for _, coinID := range c.mem.Keys() {
		if quote, ok := c.mem.Peek(coinID); ok && quote.FetchedAt.After(newest) {
			newest = quote.FetchedAt
		}
	}
	return newest
}
