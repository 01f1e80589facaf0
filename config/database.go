package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"foodhub/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens the SQLite database at path with foreign keys enforced on
// every pooled connection.
func OpenDB(path string) (*gorm.DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return db, nil
}

// Migrate creates or updates the schema. All models go through one
// AutoMigrate call so constraints declared on parents land on child tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Item{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// At most one ACTIVE cart per (user, restaurant).
	err = db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON carts (user_id, restaurant_id) WHERE status = '%s'",
		models.ActiveCartIndex, models.CartActive,
	)).Error
	if err != nil {
		return fmt.Errorf("create %s: %w", models.ActiveCartIndex, err)
	}
	return nil
}
