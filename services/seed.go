package services

import (
	"context"
	"log/slog"

	"foodhub/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Demo accounts created by SeedDemo.
const (
	DemoCustomerUsername = "demo"
	DemoCustomerPassword = "demo1234"
	DemoOwnerUsername    = "owner"
	DemoOwnerPassword    = "owner1234"
)

type seedItem struct {
	name      string
	price     int64
	available bool
}

var demoMenus = []struct {
	name, address, phone string
	open                 bool
	items                []seedItem
}{
	{
		name: "Pho Hanoi", address: "12 Hang Bac, Hoan Kiem", phone: "024 3826 1234", open: true,
		items: []seedItem{
			{"Beef pho", 50000, true},
			{"Spring rolls", 30000, true},
			{"Iced coffee", 25000, true},
			{"Seasonal special", 65000, false},
		},
	},
	{
		name: "Banh Mi Corner", address: "45 Le Loi, District 1", phone: "028 3822 5678", open: false,
		items: []seedItem{
			{"Banh mi thit", 25000, true},
			{"Banh mi op la", 30000, true},
		},
	},
}

// SeedDemo inserts demo users, restaurants and items if they are missing.
// The demo customer is created first so a fresh database gives it id 1.
func SeedDemo(ctx context.Context, db *gorm.DB) error {
	return withTx(ctx, db, "seed demo", func(tx *gorm.DB) error {
		customer, err := seedUser(tx, DemoCustomerUsername, "demo@foodhub.local", DemoCustomerPassword, "Demo Customer", models.RoleCustomer)
		if err != nil {
			return err
		}
		owner, err := seedUser(tx, DemoOwnerUsername, "owner@foodhub.local", DemoOwnerPassword, "Demo Owner", models.RoleOwner)
		if err != nil {
			return err
		}

		for _, m := range demoMenus {
			var r models.Restaurant
			if err := tx.Where("owner_id = ? AND name = ?", owner.ID, m.name).Limit(1).Find(&r).Error; err != nil {
				return err
			}
			if r.ID != 0 {
				continue
			}
			r = models.Restaurant{OwnerID: owner.ID, Name: m.name, Address: m.address, Phone: m.phone, IsOpen: m.open}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
			for _, it := range m.items {
				item := models.Item{
					RestaurantID: r.ID,
					Name:         it.name,
					Price:        decimal.NewFromInt(it.price),
					IsAvailable:  it.available,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
		}
		slog.InfoContext(ctx, "demo data ready", "customer_id", customer.ID, "owner_id", owner.ID)
		return nil
	})
}

func seedUser(tx *gorm.DB, username, email, password, fullName string, role models.UserRole) (*models.User, error) {
	var u models.User
	err := tx.Where("username = ?", username).Limit(1).Find(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID != 0 {
		return &u, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u = models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
	}
	if err := tx.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
