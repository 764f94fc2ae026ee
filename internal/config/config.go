package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         string
	RealtimePort string
	AppEnv       string
	UploadDir    string

	// Logging
	LogLevel string
	LogJSON  bool

	// Database configuration
	DBType               string // mysql, postgres, sqlite, sqlite3, sqlserver
	DBHost               string
	DBPort               string
	DBDatabase           string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int
	DBUser               string
	DBPassword           string
	DBConnectionLimit    int

	// Token authentication
	JWTSecret string
	TokenTTL  time.Duration

	// Authorizer configuration (optional session cookie validation)
	AuthzURL      string
	AuthzClientID string

	// Realtime fan-out across instances (optional)
	RedisURL string

	// Outbound email and SMS (optional)
	AWSRegion    string
	SESFromEmail string
	SMSEnabled   bool

	// Media storage: disk (UPLOAD_DIR) or s3
	StorageDriver string
	S3Bucket      string
	S3Prefix      string
	S3PublicURL   string

	// Notification outbox and reminders
	OutboxSize       int
	ReminderSchedule string
}

// Media storage drivers
const (
	StorageDisk = "disk"
	StorageS3   = "s3"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		RealtimePort:         getEnv("REALTIME_PORT", "3001"),
		AppEnv:               getEnv("APP_ENV", "development"),
		UploadDir:            getEnv("UPLOAD_DIR", "./uploads"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogJSON:              getEnvAsBool("LOG_JSON", false),
		DBType:               getEnv("DB_TYPE", "mysql"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBDatabase:           getEnv("DB_DATABASE", ""),
		DBAppUser:            getEnv("DB_APP_USER", ""),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit: getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		DBUser:               getEnv("DB_USER", ""),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:    getEnvAsInt("DB_CONNECTION_LIMIT", 2),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		TokenTTL:             getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		AWSRegion:            getEnv("AWS_REGION", ""),
		SESFromEmail:         getEnv("SES_FROM_EMAIL", ""),
		SMSEnabled:           getEnvAsBool("SMS_ENABLED", false),
		StorageDriver:        getEnv("STORAGE_DRIVER", StorageDisk),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Prefix:             getEnv("S3_PREFIX", ""),
		S3PublicURL:          getEnv("S3_PUBLIC_URL", ""),
		OutboxSize:           getEnvAsInt("OUTBOX_SIZE", 256),
		ReminderSchedule:     getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	if !c.IsSQLite() {
		if c.DBAppUser == "" {
			return fmt.Errorf("DB_APP_USER is required")
		}
		if c.DBUser == "" {
			return fmt.Errorf("DB_USER is required")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if (c.AuthzURL == "") != (c.AuthzClientID == "") {
		return fmt.Errorf("AUTHZ_URL and AUTHZ_CLIENT_ID must be set together")
	}
	switch c.StorageDriver {
	case StorageDisk, "":
	case StorageS3:
		if c.S3Bucket == "" || c.AWSRegion == "" {
			return fmt.Errorf("S3_BUCKET and AWS_REGION are required for s3 storage")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %s or %s", StorageDisk, StorageS3)
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("OUTBOX_SIZE must be positive")
	}
	return nil
}

// IsProduction reports whether detailed error messages must be hidden
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// IsSQLite reports whether the configured database is a sqlite file
func (c *Config) IsSQLite() bool {
	return c.DBType == "sqlite" || c.DBType == "sqlite3"
}

// AuthorizerEnabled reports whether session cookies are validated against Authorizer
func (c *Config) AuthorizerEnabled() bool {
	return c.AuthzURL != "" && c.AuthzClientID != ""
}

// MailEnabled reports whether outbound email is configured
func (c *Config) MailEnabled() bool {
	return c.AWSRegion != "" && c.SESFromEmail != ""
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
