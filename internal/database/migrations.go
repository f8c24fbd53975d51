package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := normalizeCurrencyCodes(db); err != nil {
		return err
	}
	if err := normalizeTransactionSigns(db); err != nil {
		return err
	}
	return nil
}

// normalizeCurrencyCodes lowercases portfolio currency codes. Early
// versions accepted whatever casing the caller sent, and quote lookups
// key on the lowercase code.
func normalizeCurrencyCodes(db *gorm.DB) error {
	if !db.Migrator().HasColumn("portfolios", "currency") {
		return nil
	}

	result := db.Exec(`UPDATE portfolios SET currency = LOWER(currency) WHERE currency != LOWER(currency)`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Normalized currency codes on %d portfolios", result.RowsAffected)
	}
	return nil
}

// normalizeTransactionSigns enforces sign-matches-type on stored amounts:
// buys positive, sells negative. Rows imported from older databases could
// carry a positive amount with transaction_type = 'sell'.
// Safe to run multiple times.
func normalizeTransactionSigns(db *gorm.DB) error {
	if !db.Migrator().HasTable("transactions") {
		return nil
	}

	result := db.Exec(`UPDATE transactions SET amount = -ABS(amount) WHERE transaction_type = 'sell' AND amount > 0`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Normalized sign on %d sell transactions", result.RowsAffected)
	}

	result = db.Exec(`UPDATE transactions SET amount = ABS(amount) WHERE transaction_type = 'buy' AND amount < 0`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Normalized sign on %d buy transactions", result.RowsAffected)
	}

	return nil
}
