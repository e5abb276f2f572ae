package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	MetricsPort         string
	DatabaseURL         string
	WebhookBaseURL      string
	TelegramAPIBaseURL  string
	TelegramParserURL   string
	TelegramHTTPTimeout time.Duration
	USDToRUBRate        float64
	WorkerConcurrency   int
	SnapshotInterval    time.Duration
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		MetricsPort:         getEnv("WORKER_METRICS_PORT", "9090"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		WebhookBaseURL:      getEnv("WEBHOOK_BASE_URL", "http://localhost:8080"),
		TelegramAPIBaseURL:  getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		TelegramParserURL:   getEnv("TELEGRAM_PARSER_URL", "http://localhost:8000"),
		TelegramHTTPTimeout: time.Second * time.Duration(getEnvInt("TELEGRAM_HTTP_TIMEOUT_SECONDS", 30)),
		USDToRUBRate:        getEnvFloat("USD_TO_RUB_RATE", 90),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 4),
		SnapshotInterval:    time.Minute * time.Duration(getEnvInt("SNAPSHOT_INTERVAL_MINUTES", 60)),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.USDToRUBRate <= 0 {
		return nil, fmt.Errorf("USD_TO_RUB_RATE must be positive")
	}

	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
