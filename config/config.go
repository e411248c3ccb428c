package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	DBUrl       string

	JWTSecret        string
	TokenExpiryHours int
	BcryptCost       int

	AppBaseURL         string
	CORSAllowedOrigins []string

	EventName        string
	SeatPriceCents   int64
	Currency         string
	TicketCodePrefix string

	PaymentSecretKey     string
	PaymentWebhookSecret string
	PaymentAPIBaseURL    string

	EmailProvider      string
	EmailFromAddress   string
	EmailFromName      string
	SESRegion          string
	SESAccessKeyID     string
	SESSecretAccessKey string
}

// Load loads configuration from environment variables
// It attempts to load from .env file if not in production
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Load .env file if not in production
	// We don't return error here because in production .env might not exist
	// and we rely on system environment variables
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found or couldn't be loaded: %v", err)
		}
	}

	cfg := &Config{
		Environment: env,
		Port:        os.Getenv("PORT"),
		DBUrl:       os.Getenv("DATABASE_URL"),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenExpiryHours: envInt("TOKEN_EXPIRY_HOURS", 24),
		BcryptCost:       envInt("BCRYPT_COST", 10),

		AppBaseURL:         os.Getenv("APP_BASE_URL"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		EventName:        os.Getenv("EVENT_NAME"),
		SeatPriceCents:   envInt64("SEAT_PRICE_CENTS", 2000),
		Currency:         os.Getenv("CURRENCY"),
		TicketCodePrefix: os.Getenv("TICKET_CODE_PREFIX"),

		PaymentSecretKey:     os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentAPIBaseURL:    os.Getenv("PAYMENT_API_BASE_URL"),

		EmailProvider:      os.Getenv("EMAIL_PROVIDER"),
		EmailFromAddress:   os.Getenv("EMAIL_FROM_ADDRESS"),
		EmailFromName:      os.Getenv("EMAIL_FROM_NAME"),
		SESRegion:          os.Getenv("AWS_SES_REGION"),
		SESAccessKeyID:     os.Getenv("AWS_SES_ACCESS_KEY_ID"),
		SESSecretAccessKey: os.Getenv("AWS_SES_SECRET_ACCESS_KEY"),
	}

	// Set defaults
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.AppBaseURL == "" {
		cfg.AppBaseURL = "http://localhost:3000"
	}
	if cfg.EventName == "" {
		cfg.EventName = "Josefi Konzert 2026"
	}
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	if cfg.TicketCodePrefix == "" {
		cfg.TicketCodePrefix = "JOSEFI2026-"
	}
	if cfg.PaymentAPIBaseURL == "" {
		cfg.PaymentAPIBaseURL = "https://api.stripe.com"
	}
	if cfg.EmailProvider == "" {
		cfg.EmailProvider = "noop"
	}

	return cfg, nil
}

func envInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Warning: invalid int for %s: %q, using %d", key, s, fallback)
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Printf("Warning: invalid int for %s: %q, using %d", key, s, fallback)
		return fallback
	}
	return n
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
