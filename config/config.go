package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config aggregates runtime settings. Everything comes from the environment,
// optionally pre-seeded from a .env file.
type Config struct {
	Env      string
	Port     string
	DBPath   string
	LogLevel slog.Level

	JWTSecret []byte
	JWTTTL    time.Duration

	SessionKey   []byte
	CSRFKey      []byte
	CookieSecure bool

	// DemoUserID stands in for anonymous shoppers. Zero outside development.
	DemoUserID uint
	SeedDemo   bool

	RedisAddr  string
	RedisDB    int
	RateLimit  int
	RateWindow time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	// CORSOrigins are the origins allowed to call /api.
	CORSOrigins []string
}

// IsDevelopment reports whether demo conveniences are enabled
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Load reads and validates configuration, applying defaults for missing keys.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:          strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "foodhub.db"),
		JWTSecret:    []byte(getEnv("JWT_SECRET", "foodhub_dev_secret_change_me")),
		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "foodhub.orders"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "*")),
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid PORT: %w", err)
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	ttlHours, err := getEnvInt("JWT_TTL_HOURS", 24)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JWT_TTL_HOURS: %w", err)
	}
	if ttlHours <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL_HOURS must be > 0")
	}
	cfg.JWTTTL = time.Duration(ttlHours) * time.Hour

	if cfg.Env == EnvProduction && os.Getenv("JWT_SECRET") == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set in production")
	}

	cfg.SessionKey = loadKey("SESSION_KEY")
	cfg.CSRFKey = loadKey("CSRF_KEY")

	if cfg.IsDevelopment() {
		demoID, err := getEnvInt("DEMO_USER_ID", 1)
		if err != nil || demoID < 0 {
			return Config{}, fmt.Errorf("invalid DEMO_USER_ID %q", os.Getenv("DEMO_USER_ID"))
		}
		cfg.DemoUserID = uint(demoID)
	}
	cfg.SeedDemo = getEnv("SEED_DEMO", strconv.FormatBool(cfg.IsDevelopment())) == "true"

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	limit, err := getEnvInt("RATE_LIMIT", 20)
	if err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}
	if limit <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT must be > 0")
	}
	cfg.RateLimit = limit

	windowSec, err := getEnvInt("RATE_WINDOW_SEC", 60)
	if err != nil {
		return Config{}, fmt.Errorf("invalid RATE_WINDOW_SEC: %w", err)
	}
	if windowSec <= 0 {
		return Config{}, fmt.Errorf("RATE_WINDOW_SEC must be > 0")
	}
	cfg.RateWindow = time.Duration(windowSec) * time.Second

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return Config{}, fmt.Errorf("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// loadKey decodes a base64 secret of at least 32 bytes, or falls back to a
// random key that will not survive a restart.
func loadKey(name string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn(name + " not set; generating a random key, sessions will not survive a restart")
		return randomBytes(32)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(key) < 32 {
		slog.Warn(name + " is invalid or shorter than 32 bytes; generating a random key")
		return randomBytes(32)
	}
	return key
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return b
}
