package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cryptofolio/backend/internal/models"
)

// RegistryService manages the set of named portfolios. Portfolios are
// never hard-deleted: soft-delete hides them from listings while their
// transactions and history rows stay queryable for audit.
type RegistryService struct {
	db *gorm.DB
}

func NewRegistryService(db *gorm.DB) *RegistryService {
	return &RegistryService{db: db}
}

// Create registers a new portfolio. The currency code is stored lowercase.
func (s *RegistryService) Create(name, currency string) (*models.Portfolio, error) {
	name = strings.TrimSpace(name)
	currency = strings.ToLower(strings.TrimSpace(currency))
	if name == "" {
		return nil, fmt.Errorf("portfolio name must not be empty")
	}
	if currency == "" {
		return nil, fmt.Errorf("portfolio currency must not be empty")
	}

	p := models.Portfolio{
		ID:       uuid.NewString(),
		Name:     name,
		Currency: currency,
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	log.Printf("Registry: created portfolio %s (%s, %s)", p.ID, p.Name, p.Currency)
	return &p, nil
}

// Get returns a portfolio by id. Absent and soft-deleted portfolios both
// yield models.ErrPortfolioNotFound.
func (s *RegistryService) Get(id string) (*models.Portfolio, error) {
	var p models.Portfolio
	err := s.db.Where("id = ? AND deleted = ?", id, false).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrPortfolioNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns all non-deleted portfolios, oldest first.
func (s *RegistryService) List() ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	err := s.db.Where("deleted = ?", false).
		Order("created_at ASC").
		Find(&portfolios).Error
	if err != nil {
		return nil, err
	}
	return portfolios, nil
}

// SoftDelete marks a portfolio deleted. Idempotent: deleting an
// already-deleted portfolio is a no-op, and no transaction or history
// rows are touched either way.
func (s *RegistryService) SoftDelete(id string) error {
	var p models.Portfolio
	err := s.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrPortfolioNotFound
		}
		return err
	}
	if p.Deleted {
		return nil
	}

	if err := s.db.Model(&p).Update("deleted", true).Error; err != nil {
		return fmt.Errorf("failed to soft-delete portfolio: %w", err)
	}

	log.Printf("Registry: soft-deleted portfolio %s (%s)", p.ID, p.Name)
	return nil
}
