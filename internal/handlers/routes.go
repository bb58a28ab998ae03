package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-nodedb/internal/middleware"
	"github.com/localnerve/jam-build-nodedb/internal/services"
)

// RegisterNodeRoutes mounts the node API on router. Reads are public,
// mutations need a user session and purges an admin session. A nil
// authenticator leaves every route open.
func RegisterNodeRoutes(router fiber.Router, h *NodeHandler, auth middleware.Authenticator) {
	user := middleware.AuthUser(auth)
	admin := middleware.AuthAdmin(auth)

	nodes := router.Group("/nodes")

	// fixed paths before /:id
	nodes.Get("/search", h.SearchNodes)
	nodes.Post("/batch", user, h.CreateNodes)
	nodes.Post("/move", user, h.MoveNodes)

	nodes.Get("/", h.GetNodes)
	nodes.Post("/", user, h.CreateNode)

	nodes.Get("/:id/hierarchy", h.GetHierarchy)
	nodes.Get("/:id/ancestors", h.GetAncestors)
	nodes.Get("/:id/history", h.GetHistory)
	nodes.Post("/:id/restore", user, h.RestoreNode)
	nodes.Post("/:id/move", user, h.MoveNode)
	nodes.Delete("/:id/purge", admin, h.PurgeNode)

	nodes.Get("/:id", h.GetNode)
	nodes.Patch("/:id", user, h.UpdateNode)
	nodes.Put("/:id", user, h.EditNode)
	nodes.Delete("/:id", user, h.DeleteNode)
}

// HealthHandler serves the health report
type HealthHandler struct {
	Checker *services.HealthChecker
}

// Health handles GET /healthz
// @Summary Service health
// @Description Probe the database, the Authorizer and the event bus
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /healthz [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := h.Checker.Check(c.UserContext())
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
