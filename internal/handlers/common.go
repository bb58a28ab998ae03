// common.go
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
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-nodedb/internal/types"
	"github.com/localnerve/jam-build-nodedb/internal/utils"
)

// parseID reads the :id route parameter
func parseID(c *fiber.Ctx) (uint64, error) {
	id, err := types.ParseID(c.Params("id"))
	if err != nil {
		return 0, types.ValidationError("Invalid node id %q.", c.Params("id"))
	}
	return id.Uint64(), nil
}

// parseShape reads ?shape=flat|tree, flat by default
func parseShape(c *fiber.Ctx) (bool, error) {
	switch strings.ToLower(c.Query("shape", "flat")) {
	case "flat":
		return false, nil
	case "tree":
		return true, nil
	}
	return false, types.ValidationError("shape must be flat or tree.")
}

// parseBool reads a boolean query parameter
func parseBool(c *fiber.Ctx, key string, fallback bool) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, types.ValidationError("%s must be true or false.", key)
	}
	return v, nil
}

// parseOptionalInt reads an optional integer query parameter
func parseOptionalInt(c *fiber.Ctx, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, types.ValidationError("%s must be an integer.", key)
	}
	return &v, nil
}

// parseBody decodes the JSON request body
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return types.ValidationError("Invalid request body: %v", err)
	}
	return nil
}

// ErrorHandler renders every error that reaches fiber in the common envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	var custom *types.CustomError
	if errors.As(err, &custom) {
		return utils.ErrorResponse(c, custom.Message, custom.Code, custom.Type)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return utils.ErrorResponse(c, fiberErr.Message, fiberErr.Code, "http")
	}

	return utils.NodeErrorResponse(c, err)
}

// NotFoundHandler answers requests that matched no route
func NotFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   "[404] Resource Not Found",
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}
