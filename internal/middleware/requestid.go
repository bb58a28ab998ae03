package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/localnerve/jam-build-nodedb/internal/logger"
)

const (
	// RequestIDHeader carries the request id in both directions
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "requestId"
	loggerKey    = "logger"
)

// RequestID assigns every request an id, reusing a well formed incoming
// X-Request-ID, and stores a logger tagged with it
func RequestID(log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Locals(requestIDKey, id)
		c.Locals(loggerKey, log.With("requestId", id))
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or an empty string
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// Logger returns the request scoped logger, or fallback when RequestID did not run
func Logger(c *fiber.Ctx, fallback *logger.Logger) *logger.Logger {
	if l, ok := c.Locals(loggerKey).(*logger.Logger); ok {
		return l
	}
	return fallback
}
