package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"foodhub/config"
	"foodhub/events"
	"foodhub/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDB(filepath.Join(t.TempDir(), "foodhub.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db       *gorm.DB
	ctx      context.Context
	customer models.User
	other    models.User
	pho      models.Restaurant
	bakery   models.Restaurant

	beefPho   models.Item // 50000
	rolls     models.Item // 30000
	soldOut   models.Item
	croissant models.Item // belongs to bakery

	carts     *CartService
	orders    *OrderService
	catalog   *CatalogService
	publisher *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{db: db, ctx: context.Background()}

	f.customer = mustCreate(t, db, models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: models.RoleCustomer, IsActive: true})
	f.other = mustCreate(t, db, models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", Role: models.RoleCustomer, IsActive: true})
	owner := mustCreate(t, db, models.User{Username: "owner", Email: "owner@example.com", PasswordHash: "x", Role: models.RoleOwner, IsActive: true})

	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	f.pho = mustCreate(t, db, models.Restaurant{OwnerID: owner.ID, Name: "Pho Hanoi", Address: "12 Hang Bac", IsOpen: true, CreatedAt: base})
	f.bakery = mustCreate(t, db, models.Restaurant{OwnerID: owner.ID, Name: "Morning Bakery", Address: "3 Pho Hue", IsOpen: false, CreatedAt: base.Add(time.Hour)})

	f.beefPho = mustCreate(t, db, models.Item{RestaurantID: f.pho.ID, Name: "Beef pho", Price: decimal.NewFromInt(50000), IsAvailable: true, CreatedAt: base})
	f.rolls = mustCreate(t, db, models.Item{RestaurantID: f.pho.ID, Name: "Spring rolls", Price: decimal.NewFromInt(30000), IsAvailable: true, CreatedAt: base.Add(time.Minute)})
	f.soldOut = mustCreate(t, db, models.Item{RestaurantID: f.pho.ID, Name: "Special", Price: decimal.NewFromInt(90000), IsAvailable: false, CreatedAt: base.Add(2 * time.Minute)})
	f.croissant = mustCreate(t, db, models.Item{RestaurantID: f.bakery.ID, Name: "Croissant", Price: decimal.NewFromInt(20000), IsAvailable: true, CreatedAt: base})

	f.publisher = &events.Recorder{}
	f.carts = NewCartService(db)
	f.catalog = NewCatalogService(db)
	f.orders = NewOrderService(db, f.publisher)
	f.orders.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func mustCreate[T any](t *testing.T, db *gorm.DB, v T) T {
	t.Helper()
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
	return v
}

func (f *fixture) add(t *testing.T, userID uint, item models.Item, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(f.ctx, AddItemInput{UserID: userID, RestaurantID: item.RestaurantID, ItemID: item.ID, Quantity: qty})
	if err != nil {
		t.Fatalf("AddItem(%s x%d): %v", item.Name, qty, err)
	}
}

func (f *fixture) checkout(t *testing.T, method models.PaymentMethod) *CheckoutResult {
	t.Helper()
	res, err := f.orders.CreateFromCart(f.ctx, CheckoutInput{
		UserID:        f.customer.ID,
		RestaurantID:  f.pho.ID,
		ShipName:      "Alice Nguyen",
		ShipPhone:     "0901234567",
		ShipAddress:   "1 Trang Tien, Hanoi",
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("CreateFromCart(%s): %v", method, err)
	}
	return res
}

func count(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func failInserts(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(errors.New("injected failure"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}
