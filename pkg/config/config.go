package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Processor ProcessorConfig

	Auth AuthConfig

	// CollectSchedule is the cron expression for the auto-collection job.
	// Empty disables the job.
	CollectSchedule string

	// AllowedOrigins is a comma-separated allowlist of origins for the console
	// frontend. Example: https://console.yourapp.com,http://localhost:5173
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type ProcessorConfig struct {
	BaseURL    string
	APIKey     string
	APIVersion string

	// WebhookSecret signs inbound processor event deliveries.
	WebhookSecret string
}

type AuthConfig struct {
	// JWTSecret signs operator session tokens (HS256).
	JWTSecret string

	// OperatorKey is the shared key exchanged for a session at /v1/auth/login.
	// Fine for a single-operator console; replace with per-user accounts before
	// opening this up.
	OperatorKey string

	SessionTTL time.Duration
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	sessionTTL := 12 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sessionTTL = d
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "billingconsole"),
			User:     env("DB_USER", "billingconsole"),
			Password: env("DB_PASSWORD", "billingconsole"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Processor: ProcessorConfig{
			BaseURL:       env("PROCESSOR_BASE_URL", "https://api.processor.test"),
			APIKey:        os.Getenv("PROCESSOR_API_KEY"),
			APIVersion:    env("PROCESSOR_API_VERSION", "2025-06"),
			WebhookSecret: os.Getenv("PROCESSOR_WEBHOOK_SECRET"),
		},
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
			OperatorKey: os.Getenv("AUTH_OPERATOR_KEY"),
			SessionTTL:  sessionTTL,
		},
		CollectSchedule: env("COLLECT_SCHEDULE", "0 6 * * *"),
		AllowedOrigins:  envList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
