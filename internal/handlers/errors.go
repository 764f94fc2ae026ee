package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/localnerve/bizflow/internal/utils"
)

const genericServerError = "Internal server error"

// ErrorHandler renders every error as the standard envelope.
// In production 5xx responses carry a generic message; details go to the log only.
func ErrorHandler(production bool) fiber.ErrorHandler {
	log := logging.WithComponent("http")

	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := types.AsAppError(err); ok {
			message := appErr.Message
			if appErr.Code >= fiber.StatusInternalServerError {
				log.Error().Err(err).
					Str("method", c.Method()).
					Str("path", c.Path()).
					Msg("request failed")
				if production {
					message = genericServerError
				} else if appErr.Err != nil {
					message = appErr.Message + ": " + appErr.Err.Error()
				}
			}
			return utils.ErrorResponse(c, appErr.Code, message, appErr.Type, appErr.Fields)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			errorType := "http"
			if fe.Code == fiber.StatusNotFound {
				errorType = "not_found"
			}
			message := fe.Message
			if fe.Code >= fiber.StatusInternalServerError && production {
				message = genericServerError
			}
			return utils.ErrorResponse(c, fe.Code, message, errorType, nil)
		}

		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("unhandled error")
		message := err.Error()
		if production {
			message = genericServerError
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, message, "internal", nil)
	}
}

// NotFound is the terminal handler for unmatched routes
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}
