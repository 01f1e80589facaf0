package services

import (
	"context"
	"errors"
	"testing"

	"foodhub/events"
	"foodhub/models"

	"github.com/shopspring/decimal"
)

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	in := CheckoutInput{UserID: f.customer.ID, RestaurantID: f.pho.ID, ShipName: "A", ShipPhone: "1", ShipAddress: "B", PaymentMethod: models.MethodCOD}

	_, err := f.orders.CreateFromCart(f.ctx, in)
	if !errors.Is(err, ErrEmptyCart) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("no cart: err = %v, want ErrEmptyCart", err)
	}

	// An existing but empty cart behaves the same.
	if _, err := f.carts.GetOrCreateActiveCart(f.ctx, f.customer.ID, f.pho.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orders.CreateFromCart(f.ctx, in); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("empty cart: err = %v", err)
	}
	if n := count(t, f.db, &models.Order{}, ""); n != 0 {
		t.Errorf("orders = %d, want 0", n)
	}
	if len(f.publisher.Events()) != 0 {
		t.Error("no event for a failed checkout")
	}
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 1)

	_, err := f.orders.CreateFromCart(f.ctx, CheckoutInput{UserID: f.customer.ID, RestaurantID: f.pho.ID, ShipName: "  ", ShipPhone: "1", ShipAddress: "B", PaymentMethod: models.MethodCOD})
	if !errors.Is(err, ErrMissingFields) {
		t.Errorf("blank ship name: %v", err)
	}
	_, err = f.orders.CreateFromCart(f.ctx, CheckoutInput{UserID: f.customer.ID, RestaurantID: f.pho.ID, ShipName: "A", ShipPhone: "1", ShipAddress: "B", PaymentMethod: "BITCOIN"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("unknown method: %v", err)
	}
	_, err = f.orders.CreateFromCart(f.ctx, CheckoutInput{UserID: f.customer.ID, RestaurantID: 999, ShipName: "A", ShipPhone: "1", ShipAddress: "B", PaymentMethod: models.MethodCOD})
	if !errors.Is(err, ErrRestaurantNotFound) {
		t.Errorf("unknown restaurant: %v", err)
	}
}

func TestCheckoutCOD(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 2)
	f.add(t, f.customer.ID, f.rolls, 1)
	cart, _ := f.carts.GetOrCreateActiveCart(f.ctx, f.customer.ID, f.pho.ID)

	res := f.checkout(t, models.MethodCOD)
	if res.NeedsGateway || res.Message == "" {
		t.Errorf("result = %+v", res)
	}

	var order models.Order
	if err := f.db.Preload("Items").Preload("Payments").First(&order, res.Order.ID).Error; err != nil {
		t.Fatal(err)
	}
	if order.Status != models.OrderPending || order.PaymentStatus != models.Paid || order.PaymentMethod != models.MethodCOD {
		t.Errorf("order = %s/%s/%s", order.Status, order.PaymentStatus, order.PaymentMethod)
	}
	if order.UserID == nil || *order.UserID != f.customer.ID {
		t.Errorf("order user = %v", order.UserID)
	}

	sum := decimal.Zero
	for _, it := range order.Items {
		sum = sum.Add(it.LineTotal)
	}
	if !order.TotalAmount.Equal(sum) || !sum.Equal(decimal.NewFromInt(130000)) {
		t.Errorf("total %s, sum of lines %s", order.TotalAmount, sum)
	}

	if len(order.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(order.Payments))
	}
	p := order.Payments[0]
	if p.Status != models.PaymentSucceeded || p.PaidAt == nil || !p.Amount.Equal(sum) || p.Reference == "" {
		t.Errorf("payment = %+v", p)
	}

	var after models.Cart
	f.db.First(&after, cart.ID)
	if after.Status != models.CartCheckedOut {
		t.Errorf("cart status = %s", after.Status)
	}

	evs := f.publisher.Events()
	if len(evs) != 1 || evs[0].Type != events.OrderPlaced || evs[0].OrderID != order.ID || evs[0].PaymentStatus != "PAID" {
		t.Errorf("events = %+v", evs)
	}
}

func TestCheckoutGatewayMethods(t *testing.T) {
	for _, m := range []models.PaymentMethod{models.MethodCard, models.MethodEWallet, models.MethodBank} {
		t.Run(string(m), func(t *testing.T) {
			f := newFixture(t)
			f.add(t, f.customer.ID, f.beefPho, 1)
			res := f.checkout(t, m)
			if !res.NeedsGateway {
				t.Error("gateway methods need a redirect")
			}

			var order models.Order
			f.db.Preload("Payments").First(&order, res.Order.ID)
			if order.PaymentStatus != models.Unpaid || order.PaymentMethod != m {
				t.Errorf("order = %s/%s", order.PaymentStatus, order.PaymentMethod)
			}
			if len(order.Payments) != 1 || order.Payments[0].Status != models.PaymentPending || order.Payments[0].PaidAt != nil {
				t.Errorf("payments = %+v", order.Payments)
			}
		})
	}
}

func TestCheckoutTruncatesShipping(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 1)
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'đ'
	}
	res, err := f.orders.CreateFromCart(f.ctx, CheckoutInput{
		UserID: f.customer.ID, RestaurantID: f.pho.ID,
		ShipName: string(long), ShipPhone: string(long), ShipAddress: string(long),
		PaymentMethod: models.MethodCOD,
	})
	if err != nil {
		t.Fatal(err)
	}
	o := res.Order
	if len([]rune(o.ShipName)) != models.ShipNameMaxLen ||
		len([]rune(o.ShipPhone)) != models.ShipPhoneMaxLen ||
		len([]rune(o.ShipAddress)) != models.ShipAddressMaxLen {
		t.Errorf("lengths %d/%d/%d", len([]rune(o.ShipName)), len([]rune(o.ShipPhone)), len([]rune(o.ShipAddress)))
	}
}

func TestRecordPaymentSuccessThenLateFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 1)
	res := f.checkout(t, models.MethodCard)

	st, err := f.orders.RecordPaymentResult(f.ctx, res.Order.ID, OutcomeSuccess)
	if err != nil {
		t.Fatal(err)
	}
	if st.Order.PaymentStatus != models.Paid || st.Payment.Status != models.PaymentSucceeded || st.Payment.PaidAt == nil {
		t.Fatalf("settlement = %+v / %+v", st.Order, st.Payment)
	}

	st, err = f.orders.RecordPaymentResult(f.ctx, res.Order.ID, OutcomeFail)
	if err != nil {
		t.Fatal(err)
	}
	if st.Payment.Status != models.PaymentFailed {
		t.Errorf("late failure is recorded on the payment, got %s", st.Payment.Status)
	}

	var order models.Order
	f.db.First(&order, res.Order.ID)
	if order.PaymentStatus != models.Paid {
		t.Errorf("a PAID order must stay PAID, got %s", order.PaymentStatus)
	}

	var types []string
	for _, e := range f.publisher.Events() {
		types = append(types, e.Type)
	}
	want := []string{events.OrderPlaced, events.PaymentSucceeded, events.PaymentFailed}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestRecordPaymentFailureKeepsOrderUnpaid(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 1)
	res := f.checkout(t, models.MethodEWallet)

	st, err := f.orders.RecordPaymentResult(f.ctx, res.Order.ID, ParseOutcome("declined"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Order.PaymentStatus != models.Unpaid || st.Payment.Status != models.PaymentFailed || st.Payment.PaidAt != nil {
		t.Errorf("settlement = %+v / %+v", st.Order, st.Payment)
	}
}

func TestRecordPaymentPrefersNewestPending(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 1)
	res := f.checkout(t, models.MethodCard)
	orderID := res.Order.ID
	firstID := res.Order.Payments[0].ID

	// A retry opens a second attempt, then a failed attempt is recorded after it.
	retry := mustCreate(t, f.db, models.Payment{OrderID: orderID, Amount: res.Order.TotalAmount, Method: models.MethodCard, Status: models.PaymentPending})
	failed := mustCreate(t, f.db, models.Payment{OrderID: orderID, Amount: res.Order.TotalAmount, Method: models.MethodCard, Status: models.PaymentFailed})

	st, err := f.orders.RecordPaymentResult(f.ctx, orderID, OutcomeSuccess)
	if err != nil {
		t.Fatal(err)
	}
	if st.Payment.ID != retry.ID {
		t.Errorf("updated payment %d, want newest pending %d", st.Payment.ID, retry.ID)
	}

	// No pending left: the newest record of any status is used.
	f.db.Model(&models.Payment{}).Where("id = ?", firstID).Update("status", models.PaymentFailed)
	st, err = f.orders.RecordPaymentResult(f.ctx, orderID, OutcomeSuccess)
	if err != nil {
		t.Fatal(err)
	}
	if st.Payment.ID != failed.ID {
		t.Errorf("fallback updated %d, want newest %d", st.Payment.ID, failed.ID)
	}
}

func TestRecordPaymentErrors(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orders.RecordPaymentResult(f.ctx, 404, OutcomeSuccess); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order: %v", err)
	}

	uid := f.customer.ID
	bare := mustCreate(t, f.db, models.Order{UserID: &uid, RestaurantID: f.pho.ID, Status: models.OrderPending, PaymentStatus: models.Unpaid, PaymentMethod: models.MethodCard, TotalAmount: decimal.NewFromInt(1)})
	if _, err := f.orders.RecordPaymentResult(f.ctx, bare.ID, OutcomeSuccess); !errors.Is(err, ErrPaymentMissing) {
		t.Errorf("order without payment: %v", err)
	}
}

func TestOrderItemsAreSnapshots(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 2)
	res := f.checkout(t, models.MethodCOD)

	f.db.Model(&f.beefPho).Updates(map[string]any{"price": decimal.NewFromInt(99000), "is_available": false, "name": "Renamed"})

	order, err := f.orders.GetForUser(f.ctx, f.customer.ID, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	it := order.Items[0]
	if !it.UnitPrice.Equal(decimal.NewFromInt(50000)) || it.ItemName != "Beef pho" || !it.LineTotal.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("snapshot changed: %+v", it)
	}
}

func TestCheckoutRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 1)
	failInserts(t, f.db, "payments")

	_, err := f.orders.CreateFromCart(f.ctx, CheckoutInput{UserID: f.customer.ID, RestaurantID: f.pho.ID, ShipName: "A", ShipPhone: "1", ShipAddress: "B", PaymentMethod: models.MethodCOD})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if n := count(t, f.db, &models.Order{}, ""); n != 0 {
		t.Errorf("orders = %d", n)
	}
	if n := count(t, f.db, &models.OrderItem{}, ""); n != 0 {
		t.Errorf("order items = %d", n)
	}
	if n := count(t, f.db, &models.Cart{}, "status = ?", models.CartActive); n != 1 {
		t.Error("cart must still be ACTIVE")
	}
	if len(f.publisher.Events()) != 0 {
		t.Error("rolled back checkout must not publish")
	}
}

func TestPublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t)
	f.publisher.Err = errors.New("broker unavailable")
	f.add(t, f.customer.ID, f.beefPho, 1)
	f.checkout(t, models.MethodCOD)
	if n := count(t, f.db, &models.Order{}, ""); n != 1 {
		t.Errorf("orders = %d, want 1", n)
	}
}

func TestPaymentInfo(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.orders.PaymentInfo(f.ctx, 404); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order: %v", err)
	}

	f.add(t, f.customer.ID, f.beefPho, 1)
	res := f.checkout(t, models.MethodBank)
	newer := mustCreate(t, f.db, models.Payment{OrderID: res.Order.ID, Amount: res.Order.TotalAmount, Method: models.MethodBank, Status: models.PaymentPending})

	order, p, err := f.orders.PaymentInfo(f.ctx, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if order.ID != res.Order.ID || p == nil || p.ID != newer.ID {
		t.Errorf("PaymentInfo = %v, %+v", order.ID, p)
	}

	uid := f.customer.ID
	bare := mustCreate(t, f.db, models.Order{UserID: &uid, RestaurantID: f.pho.ID, Status: models.OrderPending, PaymentStatus: models.Unpaid, PaymentMethod: models.MethodBank, TotalAmount: decimal.NewFromInt(1)})
	_, p, err = f.orders.PaymentInfo(f.ctx, bare.ID)
	if err != nil || p != nil {
		t.Errorf("order without payment: %v, %v", p, err)
	}
}

func TestListAndGetForUser(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 1)
	first := f.checkout(t, models.MethodCOD)
	f.add(t, f.customer.ID, f.rolls, 1)
	second := f.checkout(t, models.MethodCard)

	list, err := f.orders.ListForUser(f.ctx, f.customer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.Order.ID || list[1].ID != first.Order.ID {
		t.Fatalf("want newest first, got %+v", list)
	}
	if len(list[0].Items) != 1 {
		t.Errorf("items not loaded")
	}

	others, _ := f.orders.ListForUser(f.ctx, f.other.ID)
	if len(others) != 0 {
		t.Errorf("other user sees %d orders", len(others))
	}
	if _, err := f.orders.GetForUser(f.ctx, f.other.ID, first.Order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("foreign order: %v", err)
	}
	got, err := f.orders.GetForUser(f.ctx, f.customer.ID, second.Order.ID)
	if err != nil || len(got.Payments) != 1 {
		t.Errorf("GetForUser = %+v, %v", got, err)
	}
}

func TestEndToEndCheckout(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.customer.ID, f.beefPho, 2)
	f.add(t, f.customer.ID, f.rolls, 1)

	detail, err := f.carts.ActiveCartDetail(f.ctx, f.customer.ID, f.pho.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !detail.Total.Equal(decimal.NewFromInt(130000)) {
		t.Fatalf("cart total = %s, want 130000", detail.Total)
	}

	res := f.checkout(t, models.MethodCOD)
	var order models.Order
	f.db.First(&order, res.Order.ID)
	if !order.TotalAmount.Equal(decimal.NewFromInt(130000)) || order.PaymentStatus != models.Paid {
		t.Errorf("order total %s status %s", order.TotalAmount, order.PaymentStatus)
	}
	var cart models.Cart
	f.db.First(&cart, detail.Cart.ID)
	if cart.Status != models.CartCheckedOut {
		t.Errorf("cart = %s", cart.Status)
	}
}

type contextPublisher struct {
	err      error
	deadline bool
}

func (p *contextPublisher) Publish(ctx context.Context, _ events.Event) error {
	p.err = ctx.Err()
	_, p.deadline = ctx.Deadline()
	return nil
}

func TestPublishOutlivesRequestContext(t *testing.T) {
	pub := &contextPublisher{}
	s := NewOrderService(nil, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.publish(ctx, events.OrderPlaced, &models.Order{RestaurantID: 1}, models.MethodCard)

	if pub.err != nil {
		t.Errorf("publisher saw a canceled context: %v", pub.err)
	}
	if !pub.deadline {
		t.Error("publisher context has no deadline")
	}
}
