// error.go
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

package types

import (
	"errors"
	"fmt"
)

// CustomError is returned by middleware and rendered by the global error handler.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Error kinds of the node store. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrCycle      = errors.New("cycle")
	ErrVersion    = errors.New("E_VERSION")
)

// DuplicateNameMessage is the user visible message for sibling title clashes.
const DuplicateNameMessage = "Duplicate name"

// NodeError is a node store failure of a known kind.
type NodeError struct {
	Kind    error
	NodeID  uint64
	Message string
}

func (e *NodeError) Error() string {
	return e.Message
}

func (e *NodeError) Unwrap() error {
	return e.Kind
}

// KindName returns the short name used in API error envelopes.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "notFound"
	case errors.Is(err, ErrVersion):
		return "version"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrCycle):
		return "cycle"
	}
	return "unknown"
}

func ValidationError(format string, args ...any) *NodeError {
	return &NodeError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(id uint64, format string, args ...any) *NodeError {
	return &NodeError{Kind: ErrNotFound, NodeID: id, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(id uint64, message string) *NodeError {
	return &NodeError{Kind: ErrConflict, NodeID: id, Message: message}
}

func CycleError(id, parent uint64) *NodeError {
	return &NodeError{
		Kind:    ErrCycle,
		NodeID:  id,
		Message: fmt.Sprintf("Cannot move node %d under its own descendant %d.", id, parent),
	}
}

func VersionError(id, expected, actual uint64) *NodeError {
	return &NodeError{
		Kind:    ErrVersion,
		NodeID:  id,
		Message: fmt.Sprintf("E_VERSION - node %d is at version %d, not %d. Refresh and retry.", id, actual, expected),
	}
}
