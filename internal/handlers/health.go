package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler reports dependency health
type HealthHandler struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
}

// Check handles GET /health
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	result := services.HealthCheck(ctx, h.Config, h.DB, h.Redis)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
