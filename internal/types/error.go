package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError carries an HTTP status, a client-facing message and an error type
// used by the dashboard to route messages.
type AppError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Type    string            `json:"type"`
	Fields  map[string]string `json:"errors,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s [type: %s]: %v", e.Code, e.Message, e.Type, e.Err)
	}
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation returns a 400 error, optionally with field-level messages
func Validation(errType, message string, fields map[string]string) *AppError {
	return &AppError{Code: fiber.StatusBadRequest, Message: message, Type: errType, Fields: fields}
}

// Conflict returns a 400 error for duplicate or out-of-order operations
func Conflict(errType, message string) *AppError {
	return &AppError{Code: fiber.StatusBadRequest, Message: message, Type: errType}
}

// Unauthorized returns a 401 error
func Unauthorized(message string) *AppError {
	return &AppError{Code: fiber.StatusUnauthorized, Message: message, Type: "authentication"}
}

// Forbidden returns a 403 error
func Forbidden(message string) *AppError {
	return &AppError{Code: fiber.StatusForbidden, Message: message, Type: "authorization"}
}

// NotFound returns a 404 error
func NotFound(message string) *AppError {
	return &AppError{Code: fiber.StatusNotFound, Message: message, Type: "not_found"}
}

// Internal wraps an unexpected error as a 500
func Internal(op string, err error) *AppError {
	return &AppError{Code: fiber.StatusInternalServerError, Message: op + " failed", Type: "internal", Err: err}
}

// AsAppError extracts an *AppError from the chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
