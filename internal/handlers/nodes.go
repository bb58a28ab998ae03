// nodes.go
//
// Versioned, soft-deletable hierarchical node store for the jam-build inventory tool
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-nodedb.
// jam-build-nodedb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-nodedb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-nodedb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/middleware"
	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/services"
	"github.com/localnerve/jam-build-nodedb/internal/tree"
	"github.com/localnerve/jam-build-nodedb/internal/types"
	"github.com/localnerve/jam-build-nodedb/internal/utils"
)

// NodeHandler handles node routes
type NodeHandler struct {
	Service *services.NodeService
	Log     *logger.Logger
}

// CreateNodeRequest is the body of a node creation
type CreateNodeRequest struct {
	Parent      *types.FlexID `json:"parent" swaggertype:"integer"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Data        *models.JSON  `json:"data" swaggertype:"object"`
}

// UpdateNodeRequest is the body of a partial update
type UpdateNodeRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Data        *models.JSON `json:"data" swaggertype:"object"`
	Version     *uint64      `json:"version"`
}

// EditNodeRequest is the body of a data replacement
type EditNodeRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Data        *models.JSON `json:"data" swaggertype:"object"`
}

// MoveNodeRequest is the body of a single move. parent is required; null
// moves the node to the root level.
type MoveNodeRequest struct {
	Parent types.OptionalID `json:"parent" swaggertype:"integer"`
}

// MoveNodesRequest is the body of a batch move
type MoveNodesRequest struct {
	Parent  types.OptionalID `json:"parent" swaggertype:"integer"`
	NodeIDs types.IDList     `json:"nodeIds" swaggertype:"array,integer"`
}

func (r CreateNodeRequest) input() services.CreateInput {
	in := services.CreateInput{Title: r.Title, Description: r.Description, Data: r.Data}
	if r.Parent != nil {
		parent := r.Parent.Uint64()
		in.Parent = &parent
	}
	return in
}

// fail renders err, logging anything that is not a known node error
func (h *NodeHandler) fail(c *fiber.Ctx, operation string, err error) error {
	if utils.StatusOf(err) == fiber.StatusInternalServerError {
		middleware.Logger(c, h.Log).Error("node operation failed", "operation", operation, "error", err)
	}
	return utils.NodeErrorResponse(c, err)
}

// records renders records flat or as a forest
func records(c *fiber.Ctx, list []models.NodePoint, asTree bool) error {
	if asTree {
		return c.Status(fiber.StatusOK).JSON(tree.Build(list).Roots())
	}
	return c.Status(fiber.StatusOK).JSON(list)
}

// GetNodes handles GET /api/nodes
// @Summary Fetch all nodes
// @Description Fetch every node, flat in id order or as a forest
// @Tags Nodes
// @Produce json
// @Param shape query string false "flat (default) or tree"
// @Param includeDeleted query bool false "Include soft-deleted nodes (default true)"
// @Success 200 {array} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /nodes [get]
func (h *NodeHandler) GetNodes(c *fiber.Ctx) error {
	asTree, err := parseShape(c)
	if err != nil {
		return h.fail(c, "fetchAll", err)
	}
	includeDeleted, err := parseBool(c, "includeDeleted", true)
	if err != nil {
		return h.fail(c, "fetchAll", err)
	}

	list, err := h.Service.GetAllNodes(c.UserContext(), includeDeleted)
	if err != nil {
		return h.fail(c, "fetchAll", err)
	}
	return records(c, list, asTree)
}

// GetNode handles GET /api/nodes/:id
// @Summary Get a node
// @Description Get one node in any state
// @Tags Nodes
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /nodes/{id} [get]
func (h *NodeHandler) GetNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "get", err)
	}
	node, err := h.Service.GetNode(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "get", err)
	}
	return c.Status(fiber.StatusOK).JSON(node)
}

// GetHierarchy handles GET /api/nodes/:id/hierarchy
// @Summary Fetch a subtree
// @Description Fetch a node and everything below it, without soft-deleted nodes
// @Tags Nodes
// @Produce json
// @Param id path int true "Root node ID"
// @Param shape query string false "flat (default) or tree"
// @Success 200 {array} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /nodes/{id}/hierarchy [get]
func (h *NodeHandler) GetHierarchy(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "fetchHierarchy", err)
	}
	asTree, err := parseShape(c)
	if err != nil {
		return h.fail(c, "fetchHierarchy", err)
	}

	list, err := h.Service.FetchHierarchy(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "fetchHierarchy", err)
	}
	return records(c, list, asTree)
}

// GetAncestors handles GET /api/nodes/:id/ancestors
// @Summary Fetch the breadcrumb path
// @Description Fetch the node and its ancestors, from the node up to its root
// @Tags Nodes
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {array} models.NodePoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /nodes/{id}/ancestors [get]
func (h *NodeHandler) GetAncestors(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "fetchAncestors", err)
	}
	path, err := h.Service.FetchAncestors(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "fetchAncestors", err)
	}
	return c.Status(fiber.StatusOK).JSON(path)
}

// GetHistory handles GET /api/nodes/:id/history
// @Summary Fetch node history
// @Description Fetch the audit trail of a node, newest first
// @Tags Nodes
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {array} models.NodePointHistory
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /nodes/{id}/history [get]
func (h *NodeHandler) GetHistory(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "fetchNodeHistory", err)
	}
	entries, err := h.Service.FetchNodeHistory(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "fetchNodeHistory", err)
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

// SearchNodes handles GET /api/nodes/search
// @Summary Search nodes
// @Description Case-sensitive substring search over title, description and data of live nodes
// @Tags Nodes
// @Produce json
// @Param term query string true "Search term"
// @Param take query int false "Page size"
// @Param skip query int false "Offset"
// @Success 200 {array} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /nodes/search [get]
func (h *NodeHandler) SearchNodes(c *fiber.Ctx) error {
	take, err := parseOptionalInt(c, "take")
	if err != nil {
		return h.fail(c, "searchNodes", err)
	}
	skip, err := parseOptionalInt(c, "skip")
	if err != nil {
		return h.fail(c, "searchNodes", err)
	}

	results, err := h.Service.SearchNodes(c.UserContext(), c.Query("term"), take, skip)
	if err != nil {
		return h.fail(c, "searchNodes", err)
	}
	return c.Status(fiber.StatusOK).JSON(results)
}

// CreateNode handles POST /api/nodes
// @Summary Create a node
// @Description Create a node under an existing parent, or at the root level
// @Tags Nodes
// @Accept json
// @Produce json
// @Param body body CreateNodeRequest true "Node"
// @Success 201 {object} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes [post]
func (h *NodeHandler) CreateNode(c *fiber.Ctx) error {
	var req CreateNodeRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, "createNode", err)
	}
	node, err := h.Service.CreateNode(c.UserContext(), req.input())
	if err != nil {
		return h.fail(c, "createNode", err)
	}
	return c.Status(fiber.StatusCreated).JSON(node)
}

// CreateNodes handles POST /api/nodes/batch
// @Summary Create several nodes
// @Description Create nodes in one transaction; nothing is created if any input is invalid
// @Tags Nodes
// @Accept json
// @Produce json
// @Param body body []CreateNodeRequest true "Nodes"
// @Success 201 {array} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/batch [post]
func (h *NodeHandler) CreateNodes(c *fiber.Ctx) error {
	var req []CreateNodeRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, "createMultipleNodes", err)
	}
	inputs := make([]services.CreateInput, len(req))
	for i := range req {
		inputs[i] = req[i].input()
	}

	nodes, err := h.Service.CreateMultipleNodes(c.UserContext(), inputs)
	if err != nil {
		return h.fail(c, "createMultipleNodes", err)
	}
	return c.Status(fiber.StatusCreated).JSON(nodes)
}

// UpdateNode handles PATCH /api/nodes/:id
// @Summary Update a node
// @Description Partially update title, description or data. When version is given it must match.
// @Tags Nodes
// @Accept json
// @Produce json
// @Param id path int true "Node ID"
// @Param body body UpdateNodeRequest true "Fields"
// @Success 200 {object} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/{id} [patch]
func (h *NodeHandler) UpdateNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "updateNode", err)
	}
	var req UpdateNodeRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, "updateNode", err)
	}

	node, err := h.Service.UpdateNode(c.UserContext(), id, services.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Data:        req.Data,
		Version:     req.Version,
	})
	if err != nil {
		return h.fail(c, "updateNode", err)
	}
	return c.Status(fiber.StatusOK).JSON(node)
}

// EditNode handles PUT /api/nodes/:id
// @Summary Replace node data
// @Description Replace data wholesale, optionally with title and description
// @Tags Nodes
// @Accept json
// @Produce json
// @Param id path int true "Node ID"
// @Param body body EditNodeRequest true "Fields"
// @Success 200 {object} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/{id} [put]
func (h *NodeHandler) EditNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "editNode", err)
	}
	var req EditNodeRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, "editNode", err)
	}

	node, err := h.Service.EditNode(c.UserContext(), id, services.EditInput{
		Title:       req.Title,
		Description: req.Description,
		Data:        req.Data,
	})
	if err != nil {
		return h.fail(c, "editNode", err)
	}
	return c.Status(fiber.StatusOK).JSON(node)
}

// DeleteNode handles DELETE /api/nodes/:id
// @Summary Soft delete a node
// @Tags Nodes
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} models.NodePoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/{id} [delete]
func (h *NodeHandler) DeleteNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "deleteNode", err)
	}
	node, err := h.Service.DeleteNode(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "deleteNode", err)
	}
	return c.Status(fiber.StatusOK).JSON(node)
}

// RestoreNode handles POST /api/nodes/:id/restore
// @Summary Restore a soft-deleted node
// @Tags Nodes
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} models.NodePoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/{id}/restore [post]
func (h *NodeHandler) RestoreNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "restoreNode", err)
	}
	node, err := h.Service.RestoreNode(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "restoreNode", err)
	}
	return c.Status(fiber.StatusOK).JSON(node)
}

// PurgeNode handles DELETE /api/nodes/:id/purge
// @Summary Permanently delete a subtree
// @Description Remove a node and all of its descendants. Returns the node as it was before removal.
// @Tags Nodes
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} models.NodePoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/{id}/purge [delete]
func (h *NodeHandler) PurgeNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "hardDeleteNode", err)
	}
	node, err := h.Service.HardDeleteNode(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "hardDeleteNode", err)
	}
	return c.Status(fiber.StatusOK).JSON(node)
}

// MoveNode handles POST /api/nodes/:id/move
// @Summary Move a node
// @Description Re-parent a node. parent null moves it to the root level.
// @Tags Nodes
// @Accept json
// @Produce json
// @Param id path int true "Node ID"
// @Param body body MoveNodeRequest true "New parent"
// @Success 200 {object} models.NodePoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/{id}/move [post]
func (h *NodeHandler) MoveNode(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, "moveNode", err)
	}
	var req MoveNodeRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, "moveNode", err)
	}
	if !req.Parent.Set {
		return h.fail(c, "moveNode", types.ValidationError("parent is required, null moves to the root level."))
	}

	node, err := h.Service.MoveNode(c.UserContext(), id, req.Parent.ID)
	if err != nil {
		return h.fail(c, "moveNode", err)
	}
	return c.Status(fiber.StatusOK).JSON(node)
}

// MoveNodes handles POST /api/nodes/move
// @Summary Move several nodes
// @Description Move each id under parent independently. Per-id failures are reported, not raised.
// @Tags Nodes
// @Accept json
// @Produce json
// @Param body body MoveNodesRequest true "New parent and ids"
// @Success 200 {object} services.MoveReport
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /nodes/move [post]
func (h *NodeHandler) MoveNodes(c *fiber.Ctx) error {
	var req MoveNodesRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, "moveMultipleNodePoints", err)
	}
	if !req.Parent.Set {
		return h.fail(c, "moveMultipleNodePoints", types.ValidationError("parent is required, null moves to the root level."))
	}

	report, err := h.Service.MoveMultipleNodePoints(c.UserContext(), req.Parent.ID, req.NodeIDs.Uint64s())
	if err != nil {
		return h.fail(c, "moveMultipleNodePoints", err)
	}
	return c.Status(fiber.StatusOK).JSON(report)
}
