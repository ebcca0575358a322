package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	Currency string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	ShiprocketEmail         string
	ShiprocketPassword      string
	ShiprocketPickupPincode string

	// Shipping cost model: a flat rate per started kilogram with a floor.
	ShippingRatePerKg   int64
	ShippingMinimum     int64
	DefaultItemWeightKg float64

	CatalogCacheTTL   time.Duration
	QuoteCacheTTL     time.Duration
	AnalyticsCacheTTL time.Duration
	IdempotencyTTL    time.Duration
	CheckoutLockTTL   time.Duration

	AnalyticsRangeDays int
	RateLimit          string
	MaxBodyBytes       int64

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		Currency: valueOrDefault(k.String("CURRENCY"), "INR"),

		RazorpayKeyID:         k.String("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     k.String("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: k.String("RAZORPAY_WEBHOOK_SECRET"),

		ShiprocketEmail:         k.String("SHIPROCKET_EMAIL"),
		ShiprocketPassword:      k.String("SHIPROCKET_PASSWORD"),
		ShiprocketPickupPincode: valueOrDefault(k.String("SHIPROCKET_PICKUP_PINCODE"), "110001"),

		ShippingRatePerKg:   parseInt64(k.String("SHIPPING_RATE_PER_KG"), 60),
		ShippingMinimum:     parseInt64(k.String("SHIPPING_MINIMUM"), 60),
		DefaultItemWeightKg: parseFloat(k.String("DEFAULT_ITEM_WEIGHT_KG"), 0.5),

		CatalogCacheTTL:   parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		QuoteCacheTTL:     parseDuration(k.String("QUOTE_CACHE_TTL"), "10m"),
		AnalyticsCacheTTL: parseDuration(k.String("ANALYTICS_CACHE_TTL"), "10m"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutLockTTL:   parseDuration(k.String("CHECKOUT_LOCK_TTL"), "30s"),

		AnalyticsRangeDays: int(parseInt64(k.String("ANALYTICS_RANGE_DAYS"), 30)),
		RateLimit:          valueOrDefault(k.String("RATE_LIMIT"), "60-M"),
		MaxBodyBytes:       parseInt64(k.String("MAX_BODY_BYTES"), 1<<20),

		SMTPHost: k.String("SMTP_HOST"),
		SMTPPort: int(parseInt64(k.String("SMTP_PORT"), 587)),
		SMTPUser: k.String("SMTP_USER"),
		SMTPPass: k.String("SMTP_PASS"),
		MailFrom: valueOrDefault(k.String("MAIL_FROM"), "no-reply@mylittlethingz.com"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// PaymentConfigured reports whether Razorpay credentials are available.
func (c *Config) PaymentConfigured() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

// ShippingConfigured reports whether Shiprocket credentials are available.
func (c *Config) ShippingConfigured() bool {
	return c.ShiprocketEmail != "" && c.ShiprocketPassword != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(base, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
