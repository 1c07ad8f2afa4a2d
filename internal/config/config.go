package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port   string
	Mode   string
	AppEnv string

	// Logging configuration
	LogLevel  string
	LogFormat string

	// Database configuration (audit log)
	DatabaseURL string

	// Redis configuration (sessions and row locks); empty keeps them in memory
	RedisURL string

	// Remote store endpoints. Each one is optional at configuration time.
	RecordsFetchURL   string
	RecordCreateURL   string
	RecordUpdateURL   string
	RecordDeleteURL   string
	ClientStatusURL   string
	UsersFetchURL     string
	ReportWorkflowURL string

	// Optional HMAC key; when set every POST carries X-Webhook-Signature
	WebhookSecret string

	WebhookTimeoutSeconds int
	RefreshDelaySeconds   int

	// Authentication
	AdminUsername     string
	SessionTTLMinutes int
	RowLockSeconds    int

	// Largest accepted submission body, in megabytes
	MaxUploadMB int

	// Status written to an identity right after a new purchase is created
	PostCreateStatus string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = Load()
	return nil
}

// Load builds a Config from the current environment without touching AppConfig.
func Load() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		Mode:                  getEnv("GIN_MODE", "debug"),
		AppEnv:                getEnv("APP_ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		RecordsFetchURL:       getEnv("RECORDS_FETCH_URL", ""),
		RecordCreateURL:       getEnv("RECORD_CREATE_URL", ""),
		RecordUpdateURL:       getEnv("RECORD_UPDATE_URL", ""),
		RecordDeleteURL:       getEnv("RECORD_DELETE_URL", ""),
		ClientStatusURL:       getEnv("CLIENT_STATUS_URL", ""),
		UsersFetchURL:         getEnv("USERS_FETCH_URL", ""),
		ReportWorkflowURL:     getEnv("REPORT_WORKFLOW_URL", ""),
		WebhookSecret:         getEnv("WEBHOOK_SECRET", ""),
		WebhookTimeoutSeconds: getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 30),
		RefreshDelaySeconds:   getEnvInt("REFRESH_DELAY_SECONDS", 30),
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		SessionTTLMinutes:     getEnvInt("SESSION_TTL_MINUTES", 480),
		RowLockSeconds:        getEnvInt("ROW_LOCK_SECONDS", 60),
		MaxUploadMB:           getEnvInt("MAX_UPLOAD_MB", 32),
		PostCreateStatus:      getEnv("ELIGIBILITY_POST_CREATE_STATUS", "no_apto"),
	}
}

// WebhookTimeout returns the per-request timeout for remote store calls
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

// RefreshDelay returns the wait before a delayed repository refresh
func (c *Config) RefreshDelay() time.Duration {
	return time.Duration(c.RefreshDelaySeconds) * time.Second
}

// SessionTTL returns how long a login session stays valid
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// RowLockTTL bounds how long a row action marker survives a crashed request
func (c *Config) RowLockTTL() time.Duration {
	return time.Duration(c.RowLockSeconds) * time.Second
}

// MaxUploadBytes is the body limit of create and update requests
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
