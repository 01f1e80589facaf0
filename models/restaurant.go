package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RestaurantNameMaxLen    = 191
	RestaurantAddressMaxLen = 255
	RestaurantPhoneMaxLen   = 30
	ItemNameMaxLen          = 191
)

type Restaurant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OwnerID   uint      `json:"owner_id" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"size:191;not null"`
	Address   string    `json:"address" gorm:"size:255"`
	Phone     string    `json:"phone" gorm:"size:30"`
	IsOpen    bool      `json:"is_open" gorm:"not null"`
	ImageURL  string    `json:"image_url,omitempty" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`

	Items  []Item  `json:"items,omitempty" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	Carts  []Cart  `json:"-" gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	Orders []Order `json:"-" gorm:"foreignKey:RestaurantID;constraint:OnDelete:RESTRICT"`
}

// Item is a menu entry. Price is the live catalog price; orders keep their own copy.
type Item struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	RestaurantID uint            `json:"restaurant_id" gorm:"not null;index"`
	Name         string          `json:"name" gorm:"size:191;not null"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	IsAvailable  bool            `json:"is_available" gorm:"not null"`
	ImageURL     string          `json:"image_url,omitempty" gorm:"size:255"`
	CreatedAt    time.Time       `json:"created_at"`

	CartItems  []CartItem  `json:"-" gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"`
	OrderItems []OrderItem `json:"-" gorm:"foreignKey:ItemID;constraint:OnDelete:SET NULL"`
}
