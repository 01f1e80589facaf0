package models

import "time"

type CartStatus string

const (
	CartActive     CartStatus = "ACTIVE"
	CartCheckedOut CartStatus = "CHECKED_OUT"
)

// Cart is created lazily on the first add and checked out exactly once.
// At most one ACTIVE cart exists per (user, restaurant); see ActiveCartIndex.
type Cart struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       uint       `json:"user_id" gorm:"not null;index"`
	RestaurantID uint       `json:"restaurant_id" gorm:"not null;index"`
	Status       CartStatus `json:"status" gorm:"size:16;not null;default:'ACTIVE'"`
	CreatedAt    time.Time  `json:"created_at"`

	Items []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

type CartItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CartID    uint      `json:"cart_id" gorm:"not null;uniqueIndex:uq_cart_item_once_per_cart"`
	ItemID    uint      `json:"item_id" gorm:"not null;index;uniqueIndex:uq_cart_item_once_per_cart"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1;check:ck_cart_item_quantity_pos,quantity > 0"`
	CreatedAt time.Time `json:"created_at"`
}

// ActiveCartIndex is the partial unique index closing the get-or-create race.
const ActiveCartIndex = "uq_active_cart_per_user_restaurant"
