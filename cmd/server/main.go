package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cryptofolio/backend/internal/api"
	"github.com/cryptofolio/backend/internal/database"
	"github.com/cryptofolio/backend/internal/services"
)

func main() {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./cryptofolio.db"
	}

	// Initialize database
	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Price cache: memory tier warmed from persisted quotes
	cache, err := services.NewPriceCache(database.GetDB(), 0)
	if err != nil {
		log.Fatalf("Failed to initialize price cache: %v", err)
	}
	cache.Load()

	// CoinGecko quote fetcher. Cost-saving mode tries unauthenticated
	// requests first and falls back to the API key on a 429.
	apiKey := os.Getenv("COINGECKO_API_KEY")
	costSaving := os.Getenv("COINGECKO_COST_SAVING") != "false"
	geckoService := services.NewCoinGeckoService(apiKey, costSaving, cache)

	// Startup connectivity check, informational only
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := geckoService.Ping(pingCtx); err != nil {
		log.Printf("CoinGecko unreachable at startup: %v", err)
	} else {
		log.Println("CoinGecko API reachable")
	}
	pingCancel()

	// Core services
	db := database.GetDB()
	registryService := services.NewRegistryService(db)
	ledgerService := services.NewLedgerService(db)
	historyService := services.NewHistoryService(db)
	coinLookupService := services.NewCoinLookupService(db)
	valuationService := services.NewValuationService(registryService, ledgerService, geckoService, cache, historyService)

	// Daily valuation snapshots
	snapshotHour := 23
	if hourStr := os.Getenv("SNAPSHOT_HOUR"); hourStr != "" {
		if hour, err := strconv.Atoi(hourStr); err == nil {
			snapshotHour = hour
		}
	}
	snapshotWorker := services.NewSnapshotWorker(valuationService, registryService, historyService, snapshotHour)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start snapshot worker in background
	go snapshotWorker.Start(ctx)

	// Setup router
	router := api.SetupRouter(registryService, ledgerService, valuationService, geckoService, cache, historyService, coinLookupService)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the snapshot worker
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
