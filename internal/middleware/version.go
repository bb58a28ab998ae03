package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// DefaultAPIVersion is assumed when a request carries no X-Api-Version
const DefaultAPIVersion = "1.0.0"

const (
	apiVersionHeader = "X-Api-Version"
	apiVersionKey    = "apiVersion"
	supportedMajor   = "1"
)

// VersionMiddleware resolves the X-Api-Version header, stores it in context
// and echoes it on the response. Requests for another major version are
// rejected.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := strings.TrimPrefix(strings.TrimSpace(c.Get(apiVersionHeader, DefaultAPIVersion)), "v")

		// Support version aliases
		if version == "1" || version == "1.0" {
			version = DefaultAPIVersion
		}

		if major, _, _ := strings.Cut(version, "."); major != supportedMajor {
			return &types.CustomError{
				Code:    fiber.StatusBadRequest,
				Message: fmt.Sprintf("Unsupported API version %q, expected %s.x", version, supportedMajor),
				Type:    "version.unsupported",
			}
		}

		c.Locals(apiVersionKey, version)
		c.Set(apiVersionHeader, version)

		return c.Next()
	}
}

// GetAPIVersion returns the version resolved by VersionMiddleware
func GetAPIVersion(c *fiber.Ctx) string {
	if v, ok := c.Locals(apiVersionKey).(string); ok {
		return v
	}
	return DefaultAPIVersion
}
