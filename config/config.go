package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the portal reads from the environment. Gateway
// secrets are validated here so a misconfigured deployment dies at boot
// instead of failing per request.
type Config struct {
	Port        string
	Environment string

	// Razorpay credentials. KeyID is browser-safe and returned to clients
	// alongside created orders; KeySecret and WebhookSecret never leave the
	// server.
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	// Municipal backend the portal proxies to and reconciles against.
	BackendBaseURL string
	BackendTimeout time.Duration

	JWTSecret string

	RedisURL           string
	PaymentSNSTopicARN string
}

// Load reads configuration from the environment (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8090"),
		Environment:           getEnv("APP_ENV", "development"),
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		BackendBaseURL:        os.Getenv("BACKEND_BASE_URL"),
		BackendTimeout:        10 * time.Second,
		JWTSecret:             os.Getenv("JWT_SECRET"),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		PaymentSNSTopicARN:    getEnv("PAYMENT_SNS_TOPIC_ARN", ""),
	}

	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
	}
	if cfg.RazorpayWebhookSecret == "" {
		return nil, fmt.Errorf("RAZORPAY_WEBHOOK_SECRET must be set")
	}
	if cfg.BackendBaseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
