package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cryptofolio/backend/internal/models"
	"github.com/cryptofolio/backend/internal/services"
)

type PortfolioHandler struct {
	registry  *services.RegistryService
	valuation *services.ValuationService
	history   *services.HistoryService
}

func NewPortfolioHandler(registry *services.RegistryService, valuation *services.ValuationService, history *services.HistoryService) *PortfolioHandler {
	return &PortfolioHandler{
		registry:  registry,
		valuation: valuation,
		history:   history,
	}
}

func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	var req models.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.registry.Create(req.Name, req.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *PortfolioHandler) ListPortfolios(c *gin.Context) {
	portfolios, err := h.registry.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, portfolios)
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	p, err := h.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	err := h.registry.SoftDelete(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "portfolio deleted"})
}

// GetReport values the portfolio against currently cached quotes. Coins
// without a cached quote show up unpriced; no fetch is triggered here.
func (h *PortfolioHandler) GetReport(c *gin.Context) {
	p, err := h.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.valuation.CurrentValue(p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.PortfolioReport{
		Portfolio:  *p,
		Snapshot:   *snapshot,
		TotalValue: snapshot.TotalValue,
	})
}

func (h *PortfolioHandler) GetHistory(c *gin.Context) {
	if _, err := h.registry.Get(c.Param("id")); err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	points, err := h.history.History(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, points)
}
