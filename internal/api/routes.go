package api

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cryptofolio/backend/internal/api/handlers"
	"github.com/cryptofolio/backend/internal/metrics"
	"github.com/cryptofolio/backend/internal/services"
)

func SetupRouter(registry *services.RegistryService, ledger *services.LedgerService, valuation *services.ValuationService, gecko *services.CoinGeckoService, cache *services.PriceCache, history *services.HistoryService, coins *services.CoinLookupService) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	router.Use(requestMetrics())

	// Initialize handlers
	portfolioHandler := handlers.NewPortfolioHandler(registry, valuation, history)
	transactionHandler := handlers.NewTransactionHandler(registry, ledger)
	priceHandler := handlers.NewPriceHandler(valuation, gecko, cache, coins)

	// API routes
	api := router.Group("/api")
	{
		// Portfolio routes
		portfolios := api.Group("/portfolios")
		{
			portfolios.POST("", portfolioHandler.CreatePortfolio)
			portfolios.GET("", portfolioHandler.ListPortfolios)
			portfolios.GET("/:id", portfolioHandler.GetPortfolio)
			portfolios.DELETE("/:id", portfolioHandler.DeletePortfolio)
			portfolios.GET("/:id/report", portfolioHandler.GetReport)
			portfolios.GET("/:id/history", portfolioHandler.GetHistory)
			portfolios.POST("/:id/refresh", priceHandler.RefreshPrices)
			portfolios.POST("/:id/transactions", transactionHandler.RecordTransaction)
			portfolios.GET("/:id/transactions", transactionHandler.ListTransactions)
			portfolios.POST("/:id/import", transactionHandler.ImportTransactions)
		}

		// Transaction routes
		api.PUT("/transactions/:id", transactionHandler.UpdateTransaction)

		// Coin and price routes
		api.GET("/coins/search", priceHandler.SearchCoins)
		api.GET("/prices/status", priceHandler.GetPriceStatus)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics records request counts and latency per route template.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
