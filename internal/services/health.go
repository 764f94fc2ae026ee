package services

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer,omitempty"`
	Redis        string            `json:"redis,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(component, state string, err error) {
	r.Status = "unhealthy"
	r.Details[component+"_error"] = err.Error()
	msg := fmt.Sprintf("%s %s: %v", component, state, err)
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
}

// HealthCheck checks the database and, when configured, Authorizer and Redis.
// rdb may be nil.
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) HealthCheckResult {
	log := logging.WithComponent("health")
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.fail("database", "connection error", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.Database = "unreachable"
		result.fail("database", "ping failed", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	if cfg.AuthorizerEnabled() {
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			result.Authorizer = "unreachable"
			result.fail("authorizer", "ping failed", err)
		} else {
			result.Authorizer = "ok"
			result.Details["authorizer_url"] = cfg.AuthzURL
		}
	}

	if rdb != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			result.Redis = "unreachable"
			result.fail("redis", "ping failed", err)
		} else {
			result.Redis = "ok"
		}
	}

	if result.Status == "healthy" {
		log.Debug().Msg("health check passed")
	} else {
		log.Warn().Str("error", result.ErrorMessage).Msg("health check failed")
	}

	return result
}
