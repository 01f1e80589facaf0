package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCOD     PaymentMethod = "COD"
	MethodCard    PaymentMethod = "CARD"
	MethodEWallet PaymentMethod = "EWALLET"
	MethodBank    PaymentMethod = "BANK"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCOD, MethodCard, MethodEWallet, MethodBank:
		return true
	}
	return false
}

// ParsePaymentMethod is case-insensitive and reports whether s named a known method.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Payment is one attempt to settle an order; an order keeps every attempt.
type Payment struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method    PaymentMethod   `json:"method" gorm:"size:16;not null"`
	Status    PaymentStatus   `json:"status" gorm:"size:16;not null;default:'PENDING'"`
	Reference string          `json:"reference" gorm:"size:36;index"`
	PaidAt    *time.Time      `json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
}
