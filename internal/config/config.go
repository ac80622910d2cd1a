package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Stripe payment gateway
	StripeSecretKey      string
	StripePublishableKey string
	StripeBaseURL        string

	// Fallback pricing (minor units) when an appointment has no provider attached
	DefaultConsultationCents int
	DefaultFollowUpCents     int

	// Email delivery
	EmailProvider          string // sendgrid | ses | stub
	SendGridAPIKey         string
	FromEmail              string
	FromName               string
	SupportEmail           string
	ProviderNotifyEmail    string
	ReminderWindow         time.Duration
	ReminderCheckInterval  time.Duration
	ReminderWorkerEnabled  bool

	// AWS (only used when EmailProvider == "ses")
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Google Calendar OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	OAuthStateTTL      time.Duration

	// Redis (calendar OAuth state store)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Admin surface
	AdminJWTSecret string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeBaseURL:        getEnv("STRIPE_BASE_URL", ""),

		DefaultConsultationCents: getEnvAsInt("DEFAULT_CONSULTATION_CENTS", 5000),
		DefaultFollowUpCents:     getEnvAsInt("DEFAULT_FOLLOW_UP_CENTS", 3000),

		EmailProvider:         strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		FromEmail:             getEnv("FROM_EMAIL", "bookings@sofiahealth.com"),
		FromName:              getEnv("FROM_NAME", "Sofia Health"),
		SupportEmail:          getEnv("SUPPORT_EMAIL", "support@sofiahealth.com"),
		ProviderNotifyEmail:   getEnv("PROVIDER_NOTIFY_EMAIL", "provider@sofiahealth.com"),
		ReminderWindow:        getEnvAsDuration("REMINDER_WINDOW", 24*time.Hour),
		ReminderCheckInterval: getEnvAsDuration("REMINDER_CHECK_INTERVAL", 15*time.Minute),
		ReminderWorkerEnabled: getEnvAsBool("REMINDER_WORKER_ENABLED", true),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		GoogleClientID:     getEnv("GOOGLE_CALENDAR_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CALENDAR_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_CALENDAR_REDIRECT_URI", ""),
		OAuthStateTTL:      getEnvAsDuration("OAUTH_STATE_TTL", 10*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
