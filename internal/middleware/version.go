package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-Id"

// VersionMiddleware parses the X-Api-Version header and stores it in context
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", "1.0.0")

		// Support version aliases
		if version == "1" || version == "1.0" {
			version = "1.0.0"
		}

		c.Locals("apiVersion", version)
		return c.Next()
	}
}

// RequestID reuses an incoming X-Request-Id or assigns a new one, echoing it on the response
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals("requestId", id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}
