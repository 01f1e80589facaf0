package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"foodhub/events"
	"foodhub/models"
	"foodhub/statemachine"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckoutInput struct {
	UserID        uint
	RestaurantID  uint
	ShipName      string
	ShipPhone     string
	ShipAddress   string
	PaymentMethod models.PaymentMethod
}

type CheckoutResult struct {
	Order   *models.Order
	Message string

	// NeedsGateway is true for every method except COD.
	NeedsGateway bool
}

// PaymentOutcome is what the gateway reported for an attempt.
type PaymentOutcome string

const (
	OutcomeSuccess PaymentOutcome = "success"
	OutcomeFail    PaymentOutcome = "fail"
)

// ParseOutcome treats anything other than "success" as a failure.
func ParseOutcome(s string) PaymentOutcome {
	if strings.TrimSpace(s) == string(OutcomeSuccess) {
		return OutcomeSuccess
	}
	return OutcomeFail
}

type Settlement struct {
	Order   *models.Order
	Payment *models.Payment
}

type OrderService struct {
	DB     *gorm.DB
	Events events.Publisher
	Now    func() time.Time
}

func NewOrderService(db *gorm.DB, pub events.Publisher) *OrderService {
	if pub == nil {
		pub = events.LogPublisher{}
	}
	return &OrderService{DB: db, Events: pub, Now: time.Now}
}

// CreateFromCart snapshots the user's active cart into a PENDING order,
// opens a payment for it and checks the cart out, all in one unit of work.
// COD orders are settled immediately.
func (s *OrderService) CreateFromCart(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	shipName := truncate(strings.TrimSpace(in.ShipName), models.ShipNameMaxLen)
	shipPhone := truncate(strings.TrimSpace(in.ShipPhone), models.ShipPhoneMaxLen)
	shipAddress := truncate(strings.TrimSpace(in.ShipAddress), models.ShipAddressMaxLen)
	if shipName == "" || shipPhone == "" || shipAddress == "" {
		return nil, ErrMissingFields
	}

	now := s.now()
	var order models.Order
	err := withTx(ctx, s.DB, "create order", func(tx *gorm.DB) error {
		var r models.Restaurant
		if err := findRestaurant(tx, in.RestaurantID, &r); err != nil {
			return err
		}
		cart, err := findActiveCart(tx, in.UserID, in.RestaurantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		lines, total, err := cartLines(tx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		userID := in.UserID
		order = models.Order{
			UserID:        &userID,
			RestaurantID:  in.RestaurantID,
			Status:        models.OrderPending,
			PaymentStatus: models.Unpaid,
			PaymentMethod: in.PaymentMethod,
			ShipName:      shipName,
			ShipPhone:     shipPhone,
			ShipAddress:   shipAddress,
			TotalAmount:   total,
		}
		if err := tx.Omit("Items", "Payments").Create(&order).Error; err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, l := range lines {
			itemID := l.ItemID
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ItemID:    &itemID,
				ItemName:  l.ItemName,
				UnitPrice: l.UnitPrice,
				Quantity:  l.Quantity,
				LineTotal: l.LineTotal,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		payment := models.Payment{
			OrderID:   order.ID,
			Amount:    total,
			Method:    in.PaymentMethod,
			Status:    models.PaymentPending,
			Reference: uuid.NewString(),
		}
		if in.PaymentMethod == models.MethodCOD {
			payment.Status = models.PaymentSucceeded
			payment.PaidAt = &now
			order.PaymentStatus = models.Paid
			if err := tx.Model(&order).Update("payment_status", models.Paid).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Cart{}).
			Where("id = ? AND status = ?", cart.ID, models.CartActive).
			Update("status", models.CartCheckedOut)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCartCheckedOut
		}

		order.Items = items
		order.Payments = []models.Payment{payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderPlaced, &order, order.Payments[0].Method)

	result := &CheckoutResult{Order: &order, NeedsGateway: in.PaymentMethod != models.MethodCOD}
	if result.NeedsGateway {
		result.Message = "Order created, continuing to the payment gateway"
	} else {
		result.Message = "Order placed successfully (COD)"
	}
	return result, nil
}

// RecordPaymentResult applies a gateway callback to the order's most
// relevant payment: the newest PENDING one, else the newest of any status.
// Success always marks the order PAID; failure never un-pays it.
func (s *OrderService) RecordPaymentResult(ctx context.Context, orderID uint, outcome PaymentOutcome) (*Settlement, error) {
	now := s.now()
	var order models.Order
	var payment models.Payment
	err := withTx(ctx, s.DB, "record payment result", func(tx *gorm.DB) error {
		if err := findOrder(tx, orderID, &order); err != nil {
			return err
		}
		err := tx.Where("order_id = ? AND status = ?", order.ID, models.PaymentPending).Order("id DESC").First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("order_id = ?", order.ID).Order("id DESC").First(&payment).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentMissing
		}
		if err != nil {
			return err
		}

		target := models.PaymentFailed
		if outcome == OutcomeSuccess {
			target = models.PaymentSucceeded
		}
		if err := statemachine.Payment.CanTransition(string(payment.Status), string(target), statemachine.ActorGateway); err != nil {
			slog.WarnContext(ctx, "irregular payment transition applied",
				"order_id", order.ID, "payment_id", payment.ID, "error", err)
		}

		updates := map[string]any{"status": target}
		if target == models.PaymentSucceeded {
			updates["paid_at"] = now
		}
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return err
		}
		payment.Status = target
		if target == models.PaymentSucceeded {
			payment.PaidAt = &now
			if err := tx.Model(&order).Update("payment_status", models.Paid).Error; err != nil {
				return err
			}
			order.PaymentStatus = models.Paid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	typ := events.PaymentFailed
	if payment.Status == models.PaymentSucceeded {
		typ = events.PaymentSucceeded
	}
	s.publish(ctx, typ, &order, payment.Method)
	return &Settlement{Order: &order, Payment: &payment}, nil
}

// PaymentInfo returns the order with its newest payment. The payment is nil
// when the order has none.
func (s *OrderService) PaymentInfo(ctx context.Context, orderID uint) (*models.Order, *models.Payment, error) {
	var order models.Order
	var payment *models.Payment
	err := withTx(ctx, s.DB, "payment info", func(tx *gorm.DB) error {
		if err := findOrder(tx, orderID, &order); err != nil {
			return err
		}
		var p models.Payment
		err := tx.Where("order_id = ?", order.ID).Order("id DESC").First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		payment = &p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, payment, nil
}

// ListForUser returns the user's orders, newest first, with their lines.
func (s *OrderService) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := withTx(ctx, s.DB, "list orders", func(tx *gorm.DB) error {
		return tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
			Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Find(&orders).Error
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetForUser loads one order with lines and payment history. Orders of
// other users are reported as not found.
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := withTx(ctx, s.DB, "get order", func(tx *gorm.DB) error {
		err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
			Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payments.id") }).
			Where("id = ? AND user_id = ?", orderID, userID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// publishTimeout bounds how long a committed request waits on the publisher.
const publishTimeout = 2 * time.Second

func (s *OrderService) publish(ctx context.Context, typ string, o *models.Order, method models.PaymentMethod) {
	if s.Events == nil {
		return
	}
	e := events.Event{
		Type:          typ,
		OrderID:       o.ID,
		UserID:        o.UserID,
		RestaurantID:  o.RestaurantID,
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: string(method),
		Amount:        o.TotalAmount.StringFixed(2),
		OccurredAt:    s.now(),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Events.Publish(pctx, e); err != nil {
		slog.WarnContext(ctx, "publish event failed", "type", typ, "order_id", o.ID, "error", err)
	}
}

func findOrder(tx *gorm.DB, id uint, dst *models.Order) error {
	err := tx.First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	return err
}

