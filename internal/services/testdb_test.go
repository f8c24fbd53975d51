package services

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cryptofolio/backend/internal/database"
	"github.com/cryptofolio/backend/internal/models"
)

// newTestDB opens an isolated in-memory database per test. The shared
// cache keeps the database alive across gorm's pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Portfolio{},
		&models.Transaction{},
		&models.CoinQuote{},
		&models.CoinInfo{},
		&models.HistoryEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to run data migrations: %v", err)
	}

	return db
}

// newTestCache builds a cache over the test database.
func newTestCache(t *testing.T, db *gorm.DB) *PriceCache {
	t.Helper()
	cache, err := NewPriceCache(db, 0)
	if err != nil {
		t.Fatalf("failed to create price cache: %v", err)
	}
	return cache
}
