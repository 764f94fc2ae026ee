package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSQLiteDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_DATABASE", "bizflow.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SMS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.SMSEnabled)
	assert.True(t, cfg.IsSQLite())
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.AuthorizerEnabled())
	assert.Equal(t, 256, cfg.OutboxSize)
	assert.Equal(t, StorageDisk, cfg.StorageDriver)
}

func TestLoadRequiresCredentialsForServerDatabases(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_DATABASE", "bizflow")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_APP_USER")
}

func TestValidateAuthorizerPair(t *testing.T) {
	cfg := &Config{DBType: "sqlite", DBDatabase: "x.db", JWTSecret: "s", OutboxSize: 1, AuthzURL: "http://authz"}
	assert.Error(t, cfg.Validate())

	cfg.AuthzClientID = "client"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.AuthorizerEnabled())
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("OUTBOX_SIZE", "lots")
	t.Setenv("LOG_JSON", "maybe")

	assert.Equal(t, 10, getEnvAsInt("OUTBOX_SIZE", 10))
	assert.False(t, getEnvAsBool("LOG_JSON", false))
	assert.Equal(t, time.Minute, getEnvAsDuration("MISSING_DURATION", time.Minute))
}

func TestValidateStorageDriver(t *testing.T) {
	cfg := &Config{DBType: "sqlite", DBDatabase: "x.db", JWTSecret: "s", OutboxSize: 1}
	assert.NoError(t, cfg.Validate())

	cfg.StorageDriver = "ftp"
	assert.ErrorContains(t, cfg.Validate(), "STORAGE_DRIVER")

	cfg.StorageDriver = StorageS3
	assert.ErrorContains(t, cfg.Validate(), "S3_BUCKET")

	cfg.S3Bucket = "bizflow-media"
	cfg.AWSRegion = "me-central-1"
	assert.NoError(t, cfg.Validate())
}
