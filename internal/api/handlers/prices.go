package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cryptofolio/backend/internal/models"
	"github.com/cryptofolio/backend/internal/services"
)

type PriceHandler struct {
	valuation *services.ValuationService
	gecko     *services.CoinGeckoService
	cache     *services.PriceCache
	coins     *services.CoinLookupService
}

func NewPriceHandler(valuation *services.ValuationService, gecko *services.CoinGeckoService, cache *services.PriceCache, coins *services.CoinLookupService) *PriceHandler {
	return &PriceHandler{
		valuation: valuation,
		gecko:     gecko,
		cache:     cache,
		coins:     coins,
	}
}

// RefreshPrices re-fetches quotes for every coin the portfolio holds and,
// when every fetch succeeded, appends the snapshot to history. Partial
// results still come back for display but are flagged.
func (h *PriceHandler) RefreshPrices(c *gin.Context) {
	snapshot, failed, err := h.valuation.RefreshPrices(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"snapshot":          snapshot,
		"history_persisted": len(failed) == 0,
	}
	if len(failed) > 0 {
		resp["failed_coins"] = failed
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPriceStatus reports the fetch policy and cache state.
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	var lastUpdated *time.Time
	if t := h.cache.LastUpdated(); !t.IsZero() {
		lastUpdated = &t
	}

	c.JSON(http.StatusOK, gin.H{
		"cost_saving":  h.gecko.CostSaving(),
		"cached_coins": h.cache.Len(),
		"last_updated": lastUpdated,
	})
}

// SearchCoins serves autocomplete over the coin reference table.
func (h *PriceHandler) SearchCoins(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	coins, err := h.coins.Search(query, 25)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, coins)
}
