package services

import (
	"gorm.io/gorm"

	"github.com/cryptofolio/backend/internal/models"
)

// CoinLookupService serves autocomplete over the coin reference table.
// Rows get there when the ledger first sees a coin, or via Seed.
type CoinLookupService struct {
	db *gorm.DB
}

func NewCoinLookupService(db *gorm.DB) *CoinLookupService {
	return &CoinLookupService{db: db}
}

// Search matches the query against coin id, symbol, and name.
func (s *CoinLookupService) Search(query string, limit int) ([]models.CoinInfo, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	pattern := "%" + query + "%"
	var coins []models.CoinInfo
	err := s.db.Where("coin_id LIKE ? OR symbol LIKE ? OR name LIKE ?", pattern, pattern, pattern).
		Order("coin_id ASC").
		Limit(limit).
		Find(&coins).Error
	if err != nil {
		return nil, err
	}
	return coins, nil
}

// Seed upserts coin metadata, filling in symbol and name for coins the
// ledger registered with id only.
func (s *CoinLookupService) Seed(coins []models.CoinInfo) error {
	for _, coin := range coins {
		if coin.CoinID == "" {
			continue
		}
		result := s.db.Where("coin_id = ?", coin.CoinID).
			Assign(models.CoinInfo{Symbol: coin.Symbol, Name: coin.Name}).
			FirstOrCreate(&models.CoinInfo{CoinID: coin.CoinID})
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
