package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port        int
	AppURL      string
	JWTSecret   string
	DatabaseURL string
	CORSOrigins []string

	// Billing provider credentials and price mapping.
	BillingSecretKey    string
	WebhookSecret       string
	PriceIDStarter      string
	PriceIDProfessional string
	PriceIDPayPerUse    string
	CreditPriceCents    int64

	// OAuth (Google).
	GoogleClientID     string
	GoogleClientSecret string
	SessionSecret      string

	// Transactional mail.
	ResendAPIKey string
	EmailFrom    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, _ := strconv.Atoi(getEnv("PORT", "4001"))

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	creditPrice, err := strconv.ParseInt(getEnv("CREDIT_PRICE_CENTS", "200"), 10, 64)
	if err != nil || creditPrice <= 0 {
		return nil, fmt.Errorf("CREDIT_PRICE_CENTS must be a positive integer")
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:        port,
		AppURL:      strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		JWTSecret:   jwtSecret,
		DatabaseURL: dbURL,
		CORSOrigins: origins,

		BillingSecretKey:    getEnv("BILLING_SECRET_KEY", ""),
		WebhookSecret:       getEnv("BILLING_WEBHOOK_SECRET", ""),
		PriceIDStarter:      getEnv("PRICE_ID_STARTER", ""),
		PriceIDProfessional: getEnv("PRICE_ID_PROFESSIONAL", ""),
		PriceIDPayPerUse:    getEnv("PRICE_ID_PAY_PER_USE", ""),
		CreditPriceCents:    creditPrice,

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		SessionSecret:      getEnv("SESSION_SECRET", jwtSecret),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "DocStack <noreply@docstack.app>"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
