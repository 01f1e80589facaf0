package services

import (
	"context"
	"errors"

	"foodhub/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AddItemInput struct {
	UserID       uint
	RestaurantID uint
	ItemID       uint
	Quantity     int
}

// CartLine is a cart row priced from the live catalog.
type CartLine struct {
	CartID    uint            `json:"cart_id"`
	ItemID    uint            `json:"item_id"`
	ItemName  string          `json:"item_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total" gorm:"-"`
}

type CartDetail struct {
	Restaurant models.Restaurant `json:"restaurant"`
	Cart       models.Cart       `json:"cart"`
	Lines      []CartLine        `json:"lines"`
	Total      decimal.Decimal   `json:"total"`
}

// Empty reports whether the cart has no lines
func (d *CartDetail) Empty() bool { return len(d.Lines) == 0 }

type CartService struct {
	DB *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{DB: db}
}

func (s *CartService) GetOrCreateActiveCart(ctx context.Context, userID, restaurantID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := withTx(ctx, s.DB, "get or create cart", func(tx *gorm.DB) error {
		var r models.Restaurant
		if err := findRestaurant(tx, restaurantID, &r); err != nil {
			return err
		}
		var err error
		cart, err = activeCart(tx, userID, restaurantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem puts qty of an available item from the restaurant into the user's
// active cart, merging with an existing line. qty below 1 counts as 1.
func (s *CartService) AddItem(ctx context.Context, in AddItemInput) (*models.CartItem, error) {
	qty := max(in.Quantity, 1)

	var line models.CartItem
	err := withTx(ctx, s.DB, "add item to cart", func(tx *gorm.DB) error {
		var item models.Item
		err := tx.First(&item, in.ItemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidItem
		}
		if err != nil {
			return err
		}
		if item.RestaurantID != in.RestaurantID || !item.IsAvailable {
			return ErrInvalidItem
		}

		cart, err := activeCart(tx, in.UserID, in.RestaurantID)
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("quantity + ?", qty)}),
		}).Create(&models.CartItem{CartID: cart.ID, ItemID: item.ID, Quantity: qty}).Error
		if err != nil {
			return err
		}
		return tx.Where("cart_id = ? AND item_id = ?", cart.ID, item.ID).First(&line).Error
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ActiveCartDetail returns the user's active cart for the restaurant with
// live prices and totals, creating an empty cart when there is none.
func (s *CartService) ActiveCartDetail(ctx context.Context, userID, restaurantID uint) (*CartDetail, error) {
	detail := &CartDetail{}
	err := withTx(ctx, s.DB, "cart detail", func(tx *gorm.DB) error {
		if err := findRestaurant(tx, restaurantID, &detail.Restaurant); err != nil {
			return err
		}
		cart, err := activeCart(tx, userID, restaurantID)
		if err != nil {
			return err
		}
		detail.Cart = *cart
		detail.Lines, detail.Total, err = cartLines(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateItemQuantity sets a line's quantity; qty <= 0 removes the line.
// Only lines in the user's own active carts can be changed.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, cartID, itemID uint, qty int) error {
	return withTx(ctx, s.DB, "update cart item", func(tx *gorm.DB) error {
		line, err := ownedLine(tx, userID, cartID, itemID)
		if err != nil {
			return err
		}
		if qty <= 0 {
			return tx.Delete(line).Error
		}
		return tx.Model(line).Update("quantity", qty).Error
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, cartID, itemID uint) error {
	return withTx(ctx, s.DB, "remove cart item", func(tx *gorm.DB) error {
		line, err := ownedLine(tx, userID, cartID, itemID)
		if err != nil {
			return err
		}
		return tx.Delete(line).Error
	})
}

// activeCart finds the newest ACTIVE cart for the pair or creates one.
// A concurrent creator wins through the partial unique index; the loser
// reads the winner's row.
func activeCart(tx *gorm.DB, userID, restaurantID uint) (*models.Cart, error) {
	cart, err := findActiveCart(tx, userID, restaurantID)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return cart, err
	}

	cart = &models.Cart{UserID: userID, RestaurantID: restaurantID, Status: models.CartActive}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(cart)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return findActiveCart(tx, userID, restaurantID)
	}
	return cart, nil
}

func findActiveCart(tx *gorm.DB, userID, restaurantID uint) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ? AND restaurant_id = ? AND status = ?", userID, restaurantID, models.CartActive).
		Order("created_at DESC, id DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func cartLines(tx *gorm.DB, cartID uint) ([]CartLine, decimal.Decimal, error) {
	lines := []CartLine{}
	err := tx.Table("cart_items").
		Select("cart_items.cart_id, cart_items.item_id, items.name AS item_name, items.price AS unit_price, cart_items.quantity").
		Joins("JOIN items ON items.id = cart_items.item_id").
		Where("cart_items.cart_id = ?", cartID).
		Order("cart_items.id").
		Scan(&lines).Error
	if err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	for i := range lines {
		lines[i].LineTotal = lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		total = total.Add(lines[i].LineTotal)
	}
	return lines, total, nil
}

func ownedLine(tx *gorm.DB, userID, cartID, itemID uint) (*models.CartItem, error) {
	var cart models.Cart
	err := tx.Where("id = ? AND user_id = ? AND status = ?", cartID, userID, models.CartActive).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, err
	}

	var line models.CartItem
	err = tx.Where("cart_id = ? AND item_id = ?", cart.ID, itemID).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}
