package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Type    string            `json:"type,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SuccessResponse sends a success envelope with data
func SuccessResponse(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// OK sends a 200 success envelope
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return SuccessResponse(c, fiber.StatusOK, message, data)
}

// Created sends a 201 success envelope
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return SuccessResponse(c, fiber.StatusCreated, message, data)
}

// ErrorResponse sends a failure envelope
func ErrorResponse(c *fiber.Ctx, status int, message, errorType string, fields map[string]string) error {
	return c.Status(status).JSON(Envelope{
		Success: false,
		Message: message,
		Type:    errorType,
		Errors:  fields,
	})
}

// NotFoundResponse sends a 404 failure envelope
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, fiber.StatusNotFound, message, "not_found", nil)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Success bool              `json:"success" example:"false"`
	Message string            `json:"message" example:"Application not found"`
	Type    string            `json:"type,omitempty" example:"not_found"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SuccessResponseStruct defines the schema for success responses
type SuccessResponseStruct struct {
	Success bool        `json:"success" example:"true"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}
