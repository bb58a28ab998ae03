package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// GenericErrorMessage is shown for failures that are not a known node error
const GenericErrorMessage = "An unexpected error occurred"

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// VersionErrorResponse sends a version conflict error (409)
func VersionErrorResponse(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "E_VERSION - Refresh and reconcile with current version and retry."
	}
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":       fiber.StatusConflict,
		"message":      message,
		"ok":           false,
		"versionError": true,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         "version",
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, "notFound")
}

// NodeErrorResponse renders err with the status of its kind. Unknown errors
// become a 500 with a generic message; their text is never sent.
func NodeErrorResponse(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	switch {
	case errors.Is(err, types.ErrVersion):
		return VersionErrorResponse(c, err.Error())
	case status == fiber.StatusInternalServerError:
		return ErrorResponse(c, GenericErrorMessage, status, "unknown")
	}
	return ErrorResponse(c, err.Error(), status, types.KindName(err))
}

// StatusOf maps a node error kind to its HTTP status
func StatusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, types.ErrVersion), errors.Is(err, types.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, types.ErrCycle):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int    `json:"status"`
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	Timestamp    string `json:"timestamp"`
	URL          string `json:"url"`
	Type         string `json:"type,omitempty"`
	VersionError bool   `json:"versionError,omitempty"`
}
