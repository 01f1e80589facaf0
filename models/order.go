package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderAccepted  OrderStatus = "ACCEPTED"
	OrderRejected  OrderStatus = "REJECTED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// OrderPaymentStatus is the settled/unsettled flag kept on the order itself
type OrderPaymentStatus string

const (
	Unpaid OrderPaymentStatus = "UNPAID"
	Paid   OrderPaymentStatus = "PAID"
)

const (
	ShipNameMaxLen    = 120
	ShipPhoneMaxLen   = 30
	ShipAddressMaxLen = 255
)

// Order is a snapshot of a cart at checkout time. UserID is nullable so the
// order survives deletion of its customer.
type Order struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	UserID        *uint              `json:"user_id" gorm:"index"`
	RestaurantID  uint               `json:"restaurant_id" gorm:"not null;index"`
	Status        OrderStatus        `json:"status" gorm:"size:16;not null;default:'PENDING'"`
	PaymentStatus OrderPaymentStatus `json:"payment_status" gorm:"size:16;not null;default:'UNPAID'"`
	PaymentMethod PaymentMethod      `json:"payment_method" gorm:"size:16;not null;default:'CARD'"`
	ShipName      string             `json:"ship_name" gorm:"size:120"`
	ShipPhone     string             `json:"ship_phone" gorm:"size:30"`
	ShipAddress   string             `json:"ship_address" gorm:"size:255"`
	TotalAmount   decimal.Decimal    `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt     time.Time          `json:"created_at"`

	Items    []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments []Payment   `json:"payments,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is immutable once written: name and prices are copied, not referenced.
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	ItemID    *uint           `json:"item_id" gorm:"index"`
	ItemName  string          `json:"item_name" gorm:"size:191;not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null;default:1;check:ck_order_item_quantity_pos,quantity > 0"`
	LineTotal decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
}
