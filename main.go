package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodhub/config"
	"foodhub/events"
	"foodhub/handlers"
	"foodhub/middleware"
	"foodhub/routes"
	"foodhub/services"
	"foodhub/web"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.OpenDB(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	if err := config.Migrate(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	if cfg.SeedDemo {
		if err := services.SeedDemo(context.Background(), db); err != nil {
			slog.Error("Failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}
	if cfg.DemoUserID != 0 {
		slog.Warn("Anonymous shoppers act as the demo user; do not run like this in production", "user_id", cfg.DemoUserID)
	}

	pages, err := web.Load()
	if err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.LogPublisher{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		slog.Info("Publishing order events to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var rdb *rd.Client
	if cfg.RedisAddr != "" {
		rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			slog.Warn("Redis unreachable, rate limiting fails open until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
	}

	catalog := services.NewCatalogService(db)
	auth := services.NewAuthService(db)
	carts := services.NewCartService(db)
	orders := services.NewOrderService(db, publisher)
	store := middleware.NewSessionStore(cfg.SessionKey, cfg.CookieSecure)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.SecurityHeaders())
	routes.Setup(r, routes.Deps{
		Web: &handlers.Web{
			Catalog: catalog,
			Auth:    auth,
			Carts:   carts,
			Orders:  orders,
			Store:   store,
			Pages:   pages,
		},
		API: &handlers.API{
			Catalog:   catalog,
			Auth:      auth,
			Carts:     carts,
			Orders:    orders,
			JWTSecret: cfg.JWTSecret,
			JWTTTL:    cfg.JWTTTL,
		},
		Store:       store,
		DemoUserID:  cfg.DemoUserID,
		JWTSecret:   cfg.JWTSecret,
		Redis:       rdb,
		RateLimit:   cfg.RateLimit,
		RateWindow:  cfg.RateWindow,
		CORSOrigins: cfg.CORSOrigins,
	})

	trusted := []string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CSRF(cfg.CSRFKey, cfg.CookieSecure, trusted)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exited gracefully.")
}
