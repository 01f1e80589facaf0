package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"foodhub/config"
	"foodhub/models"
	"foodhub/services"

	"gorm.io/gorm"
)

const usage = "expected 'add-user' or 'seed-demo' subcommand"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "add-user":
		fs := flag.NewFlagSet("add-user", flag.ContinueOnError)
		username := fs.String("username", "", "Username for the new user")
		email := fs.String("email", "", "Email address for the new user")
		password := fs.String("password", "", "Password for the new user")
		role := fs.String("role", string(models.RoleCustomer), "CUSTOMER, OWNER or ADMIN")
		fullName := fs.String("name", "", "Full name (optional)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *username == "" || *email == "" || *password == "" {
			fs.PrintDefaults()
			return fmt.Errorf("username, email and password are required")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		user, err := services.NewAuthService(db).Register(ctx, services.RegisterInput{
			Username: *username,
			Email:    *email,
			Password: *password,
			FullName: *fullName,
			Role:     models.UserRole(*role),
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Printf("User '%s' created with id %d (%s).\n", user.Username, user.ID, user.Role)
		return nil

	case "seed-demo":
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		if err := services.SeedDemo(ctx, db); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		fmt.Printf("Demo data ready. Log in as %s / %s.\n", services.DemoCustomerUsername, services.DemoCustomerPassword)
		return nil
	}
	return fmt.Errorf("unknown command %q: %s", cmd, usage)
}

// openDB opens DB_PATH and makes sure the schema exists, so the CLI can run
// before the server ever has.
func openDB() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := config.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := config.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
