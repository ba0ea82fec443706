package config

import (
	"log/slog"
	"strings"
	"time"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment          string
	Addr                 string
	StoreDriver          string
	DatabaseURL          string
	MigrationsDir        string
	AutoMigrate          bool
	LogLevel             slog.Level
	JWTSecret            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	InvitationTTL        time.Duration
	InactivePolicy       string
	BillingWebhookSecret string
	NotifyWebhookURL     string
	NotifyTimeout        time.Duration
	AppBaseURL           string
	RateLimitRedisAddr   string
	RateLimitRedisPass   string
	RateLimitRedisDB     int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:          GetString("APP_ENV", "development"),
		Addr:                 GetString("API_ADDR", ":4000"),
		StoreDriver:          strings.ToLower(GetString("STORE_DRIVER", "postgres")),
		DatabaseURL:          GetString("DATABASE_URL", "postgres://wordgen:wordgen@db:5432/wordgen?sslmode=disable"),
		MigrationsDir:        GetString("DB_MIGRATIONS_DIR", ""),
		AutoMigrate:          GetBool("DB_AUTO_MIGRATE", true),
		LogLevel:             parseLevel(GetString("LOG_LEVEL", "info")),
		JWTSecret:            GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:       time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL:      time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 24)) * time.Hour,
		InvitationTTL:        GetDuration("INVITATION_TTL", 7*24*time.Hour),
		InactivePolicy:       strings.ToLower(GetString("INACTIVE_SUBSCRIPTION_POLICY", "enforce")),
		BillingWebhookSecret: GetString("BILLING_WEBHOOK_SECRET", ""),
		NotifyWebhookURL:     GetString("NOTIFY_WEBHOOK_URL", ""),
		NotifyTimeout:        time.Duration(GetInt("NOTIFY_TIMEOUT_SECONDS", 5)) * time.Second,
		AppBaseURL:           strings.TrimRight(GetString("APP_BASE_URL", "http://localhost:3000"), "/"),
		RateLimitRedisAddr:   GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:   GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:     GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo
	}
	return level
}
