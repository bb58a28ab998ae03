package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// Authenticator validates Authorizer sessions. Init is called on every
// request and is expected to act only once.
type Authenticator interface {
	Init(requestProtocol, requestHost string) error
	ValidateSession(cookie string, roles []string) (map[string]interface{}, error)
}

// AuthAdmin validates that the request has admin role authorization.
// A nil authenticator disables the check.
func AuthAdmin(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, auth, []string{"admin"}, "nodes.authorization.admin")
	}
}

// AuthUser validates that the request has user role authorization.
// A nil authenticator disables the check.
func AuthUser(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, auth, []string{"user"}, "nodes.authorization.user")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, auth Authenticator, roles []string, errorType string) error {
	if auth == nil {
		return c.Next()
	}

	if err := auth.Init(c.Protocol(), c.Hostname()); err != nil {
		return &types.CustomError{
			Code:    fiber.StatusServiceUnavailable,
			Message: fmt.Sprintf("Authorizer unavailable: %v", err),
			Type:    errorType,
		}
	}

	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	// Validate session
	data, err := auth.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	// Set user data in context
	if user, ok := data["user"]; ok {
		c.Locals("user", user)
	}

	return c.Next()
}
