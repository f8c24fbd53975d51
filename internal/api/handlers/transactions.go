package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cryptofolio/backend/internal/models"
	"github.com/cryptofolio/backend/internal/services"
)

type TransactionHandler struct {
	registry *services.RegistryService
	ledger   *services.LedgerService
}

func NewTransactionHandler(registry *services.RegistryService, ledger *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		registry: registry,
		ledger:   ledger,
	}
}

func (h *TransactionHandler) RecordTransaction(c *gin.Context) {
	p, err := h.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req models.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.ledger.Record(p.ID, req.CoinID, req.Amount, req.PricePerCoin, req.Date, req.Type)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHoldings) {
			c.JSON(http.StatusConflict, gin.H{"error": "sell exceeds current holdings"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, txn)
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	p, err := h.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	txns, err := h.ledger.List(p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, txns)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req models.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.ledger.Update(uint(id), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		case errors.Is(err, models.ErrInsufficientHoldings):
			c.JSON(http.StatusConflict, gin.H{"error": "edit would drive holdings negative"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, txn)
}

// ImportTransactions applies a batch of coin -> transaction entries. A
// malformed entry aborts the import; entries applied before the abort
// stay recorded, and the response says how many made it.
func (h *TransactionHandler) ImportTransactions(c *gin.Context) {
	p, err := h.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrPortfolioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.ledger.Import(p.ID, req)
	if err != nil {
		var malformed *models.MalformedImportError
		switch {
		case errors.As(err, &malformed):
			c.JSON(http.StatusBadRequest, gin.H{"error": malformed.Error(), "applied": applied})
		case errors.Is(err, models.ErrInsufficientHoldings):
			c.JSON(http.StatusConflict, gin.H{"error": "sell exceeds current holdings", "applied": applied})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "applied": applied})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
