package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"craft-platform/internal/gateway/momo"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Registration session configuration
	SessionTTL time.Duration
	DialogTTL  time.Duration

	// Confirmation redirect configuration
	RedirectDelay      time.Duration
	CountdownSeconds   int
	RedirectSessionTTL time.Duration

	// Manual payment recipient (configuration data, surfaced to the user)
	MomoRecipientNumber string
	MomoRecipientNames  []string
	Currency            string

	// Online gateway (designed but inactive in this deployment)
	OnlinePaymentsEnabled bool
	Momo                  momo.Config

	// PubNub configuration (operator notifications)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	AdminAlertChannel  string
	ErrorReportChannel string

	// Rate limiting
	PublicRateLimit int
	RateLimitWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Sessions
		SessionTTL: getEnvAsDuration("REGISTRATION_SESSION_TTL", "30m"),
		DialogTTL:  getEnvAsDuration("PAYMENT_DIALOG_TTL", "15m"),

		// Redirect
		RedirectDelay:      getEnvAsDuration("REDIRECT_DELAY", "2s"),
		CountdownSeconds:   getEnvAsInt("REDIRECT_COUNTDOWN_SECONDS", 10),
		RedirectSessionTTL: getEnvAsDuration("REDIRECT_SESSION_TTL", "10m"),

		// Manual payment recipient
		MomoRecipientNumber: getEnv("MOMO_RECIPIENT_NUMBER", "0537705437"),
		MomoRecipientNames:  getEnvAsList("MOMO_RECIPIENT_NAMES", "CRAFT Foundation,Kwame Mensah"),
		Currency:            getEnv("CURRENCY", "GHS"),

		// Online gateway
		OnlinePaymentsEnabled: getEnvAsBool("ONLINE_PAYMENTS_ENABLED", false),
		Momo: momo.Config{
			BaseURL:           getEnv("MOMO_BASE_URL", ""),
			PartnerID:         getEnv("MOMO_PARTNER_ID", ""),
			ClientID:          getEnv("MOMO_CLIENT_ID", ""),
			ClientKey:         getEnv("MOMO_CLIENT_KEY", ""),
			HMACKey:           getEnv("MOMO_HMAC_KEY", ""),
			WebhookSecretHash: getEnv("MOMO_WEBHOOK_SECRET_HASH", ""),
			PNSubKey:          getEnv("MOMO_PN_SUBKEY", ""),
			PNUUID:            getEnv("MOMO_PN_UUID", ""),
			PNChannel:         getEnv("MOMO_PN_CHANNEL", ""),
		},

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		AdminAlertChannel:  getEnv("ADMIN_ALERT_CHANNEL", "ops-pending-payments"),
		ErrorReportChannel: getEnv("ERROR_REPORT_CHANNEL", "ops-errors"),

		// Rate limiting
		PublicRateLimit: getEnvAsInt("PUBLIC_RATE_LIMIT", 30),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	parts := strings.Split(getEnv(key, defaultValue), ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
