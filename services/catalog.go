package services

import (
	"context"
	"errors"
	"strings"

	"foodhub/models"

	"gorm.io/gorm"
)

// RestaurantFilter narrows ListRestaurants. Zero value lists everything.
type RestaurantFilter struct {
	Query string
	Open  *bool
}

// ParseOpenFilter turns the is_open query parameter into a filter value:
// "1" is open, "0" is closed, anything else means no filter.
func ParseOpenFilter(v string) *bool {
	var b bool
	switch strings.TrimSpace(v) {
	case "1":
		b = true
	case "0":
		b = false
	default:
		return nil
	}
	return &b
}

type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// ListRestaurants matches Query case-insensitively against name or address,
// newest first. No match is an empty slice, not an error.
func (s *CatalogService) ListRestaurants(ctx context.Context, f RestaurantFilter) ([]models.Restaurant, error) {
	restaurants := []models.Restaurant{}
	err := withTx(ctx, s.DB, "list restaurants", func(tx *gorm.DB) error {
		q := tx.Model(&models.Restaurant{})
		if term := strings.TrimSpace(f.Query); term != "" {
			like := "%" + escapeLike(strings.ToLower(term)) + "%"
			q = q.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(address) LIKE ? ESCAPE '\\'", like, like)
		}
		if f.Open != nil {
			q = q.Where("is_open = ?", *f.Open)
		}
		return q.Order("created_at DESC, id DESC").Find(&restaurants).Error
	})
	if err != nil {
		return nil, err
	}
	return restaurants, nil
}

func (s *CatalogService) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	var r models.Restaurant
	err := withTx(ctx, s.DB, "get restaurant", func(tx *gorm.DB) error {
		return findRestaurant(tx, id, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListAvailableItems returns the restaurant's orderable items, newest first.
func (s *CatalogService) ListAvailableItems(ctx context.Context, restaurantID uint) ([]models.Item, error) {
	items := []models.Item{}
	err := withTx(ctx, s.DB, "list items", func(tx *gorm.DB) error {
		return tx.Where("restaurant_id = ? AND is_available = ?", restaurantID, true).
			Order("created_at DESC, id DESC").
			Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func findRestaurant(tx *gorm.DB, id uint, dst *models.Restaurant) error {
	err := tx.First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRestaurantNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
