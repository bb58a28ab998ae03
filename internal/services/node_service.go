// node_service.go
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

package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// DefaultMaxTake caps a search page when no limit is configured
const DefaultMaxTake = 100

// NodeService owns every read and mutation of the node tree.
// Each mutation runs in its own transaction and appends its audit entry in
// that same transaction.
type NodeService struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Events  events.Publisher
	MaxTake int
}

// CreateInput carries the fields of a new node
type CreateInput struct {
	Parent      *uint64
	Title       string
	Description string
	Data        *models.JSON
}

// UpdateInput is a partial update; nil fields keep their stored value.
// When Version is set it must match the stored version.
type UpdateInput struct {
	Title       *string
	Description *string
	Data        *models.JSON
	Version     *uint64
}

// EditInput replaces data wholesale and optionally title and description
type EditInput struct {
	Title       *string
	Description *string
	Data        *models.JSON
}

// NewNodeService creates a NodeService. A nil publisher drops events and a
// non-positive maxTake falls back to DefaultMaxTake.
func NewNodeService(db *gorm.DB, log *logger.Logger, publisher events.Publisher, maxTake int) *NodeService {
	if log == nil {
		log = logger.NewNop()
	}
	if publisher == nil {
		publisher = events.NewNoop()
	}
	if maxTake < 1 {
		maxTake = DefaultMaxTake
	}
	return &NodeService{
		DB:      db,
		Log:     log.With("service", "NodeService"),
		Events:  publisher,
		MaxTake: maxTake,
	}
}

// publish announces a committed mutation. Failures are logged only.
func (s *NodeService) publish(ctx context.Context, action string, parent *uint64, ids ...uint64) {
	evt := events.Event{Action: action, NodeIDs: ids, Parent: parent, At: now()}
	if err := s.Events.Publish(ctx, evt); err != nil {
		s.Log.Warn("failed to publish node event", "action", action, "nodeIds", ids, "error", err)
	}
}

// requireTitle rejects blank titles. Titles are stored as supplied.
func requireTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return types.ValidationError("Title is required.")
	}
	return nil
}

// dataOrEmpty returns the data value, {} when absent
func dataOrEmpty(data *models.JSON) models.JSON {
	if data == nil || len(data.JSON) == 0 {
		return models.EmptyJSON()
	}
	return *data
}

// newRecord validates a create input against the set of stored parents
func newRecord(in CreateInput, parents map[uint64]struct{}) (models.NodePoint, error) {
	if err := requireTitle(in.Title); err != nil {
		return models.NodePoint{}, err
	}
	if in.Parent != nil {
		if _, ok := parents[*in.Parent]; !ok {
			return models.NodePoint{}, types.ValidationError("Parent node %d does not exist.", *in.Parent)
		}
	}
	return models.NodePoint{
		Parent:      in.Parent,
		Title:       in.Title,
		Description: in.Description,
		Data:        dataOrEmpty(in.Data),
		Version:     1,
	}, nil
}

// parentSet returns the subset of the referenced parents that are stored.
// Tombstones remain in the store, so they count.
func parentSet(tx *gorm.DB, inputs []CreateInput) (map[uint64]struct{}, error) {
	wanted := make([]uint64, 0, len(inputs))
	for _, in := range inputs {
		if in.Parent != nil {
			wanted = append(wanted, *in.Parent)
		}
	}
	found := make(map[uint64]struct{}, len(wanted))
	if len(wanted) == 0 {
		return found, nil
	}

	var ids []uint64
	if err := tx.Model(&models.NodePoint{}).
		Where("id IN ?", wanted).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve parents: %w", err)
	}
	for _, id := range ids {
		found[id] = struct{}{}
	}
	return found, nil
}

// CreateNode inserts a node at version 1 and logs its creation
func (s *NodeService) CreateNode(ctx context.Context, in CreateInput) (*models.NodePoint, error) {
	var node models.NodePoint

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parents, err := parentSet(tx, []CreateInput{in})
		if err != nil {
			return err
		}
		if node, err = newRecord(in, parents); err != nil {
			return err
		}
		if err := tx.Create(&node).Error; err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}
		return appendHistory(tx, &node, models.ActionCreate)
	})

	err = translateError(0, err)
	observe(models.ActionCreate, err)
	if err != nil {
		return nil, err
	}

	s.Log.Info("node created", "nodeId", node.ID, "parent", node.Parent)
	s.publish(ctx, models.ActionCreate, node.Parent, node.ID)
	return &node, nil
}

// CreateMultipleNodes validates every input before inserting any, then
// inserts the batch and its history in one transaction
func (s *NodeService) CreateMultipleNodes(ctx context.Context, inputs []CreateInput) ([]models.NodePoint, error) {
	nodes := make([]models.NodePoint, 0, len(inputs))
	if len(inputs) == 0 {
		return nodes, nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parents, err := parentSet(tx, inputs)
		if err != nil {
			return err
		}
		for i, in := range inputs {
			node, err := newRecord(in, parents)
			if err != nil {
				return types.ValidationError("Node %d: %s", i+1, err.Error())
			}
			nodes = append(nodes, node)
		}
		if err := tx.Create(&nodes).Error; err != nil {
			return fmt.Errorf("failed to create nodes: %w", err)
		}
		return appendHistoryBatch(tx, nodes, models.ActionCreate)
	})

	err = translateError(0, err)
	observe("createMultiple", err)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, len(nodes))
	for i := range nodes {
		ids[i] = nodes[i].ID
	}
	s.Log.Info("nodes created", "count", len(nodes))
	s.publish(ctx, models.ActionCreate, nil, ids...)
	return nodes, nil
}

// GetNode returns a node in any state
func (s *NodeService) GetNode(ctx context.Context, id uint64) (*models.NodePoint, error) {
	return findNode(s.DB.WithContext(ctx), id, false)
}

// GetAllNodes returns every node ordered by id, tombstones included on request
func (s *NodeService) GetAllNodes(ctx context.Context, includeDeleted bool) ([]models.NodePoint, error) {
	records := make([]models.NodePoint, 0)
	q := tagged(s.DB.WithContext(ctx), "fetchAll")
	if !includeDeleted {
		q = q.Where("deleted = ?", false)
	}
	if err := q.Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch nodes: %w", err)
	}
	return records, nil
}

// FetchHierarchy returns rootID and everything below it, without tombstones.
// Tombstones are filtered after traversal, so live records under a deleted
// one are still returned.
func (s *NodeService) FetchHierarchy(ctx context.Context, rootID uint64) ([]models.NodePoint, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findNode(db, rootID, false); err != nil {
		return nil, err
	}

	records, err := selectDescendants(db, rootID)
	if err != nil {
		return nil, err
	}

	out := make([]models.NodePoint, 0, len(records))
	for _, r := range records {
		if !r.Deleted {
			out = append(out, r)
		}
	}
	return out, nil
}

// FetchAncestors returns the path from id up to its root, id first
func (s *NodeService) FetchAncestors(ctx context.Context, id uint64) ([]models.NodePoint, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findNode(db, id, false); err != nil {
		return nil, err
	}
	return ancestorPath(db, id)
}

// UpdateNode applies a partial update to a live node and bumps its version
func (s *NodeService) UpdateNode(ctx context.Context, id uint64, in UpdateInput) (*models.NodePoint, error) {
	node, err := s.rewrite(ctx, id, in.Version, func(node *models.NodePoint) error {
		if in.Title != nil {
			if err := requireTitle(*in.Title); err != nil {
				return err
			}
			node.Title = *in.Title
		}
		if in.Description != nil {
			node.Description = *in.Description
		}
		if in.Data != nil {
			node.Data = dataOrEmpty(in.Data)
		}
		return nil
	})
	observe("update", err)
	return node, err
}

// EditNode replaces the data of a live node, optionally with title and
// description, and bumps its version
func (s *NodeService) EditNode(ctx context.Context, id uint64, in EditInput) (*models.NodePoint, error) {
	node, err := s.rewrite(ctx, id, nil, func(node *models.NodePoint) error {
		if in.Title != nil {
			if err := requireTitle(*in.Title); err != nil {
				return err
			}
			node.Title = *in.Title
		}
		if in.Description != nil {
			node.Description = *in.Description
		}
		node.Data = dataOrEmpty(in.Data)
		return nil
	})
	observe("edit", err)
	return node, err
}

// rewrite locks a live node, logs its current values, applies change and
// stores the result at the next version
func (s *NodeService) rewrite(ctx context.Context, id uint64, expected *uint64, change func(*models.NodePoint) error) (*models.NodePoint, error) {
	var node *models.NodePoint

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if node, err = findLiveNode(tx, id, true); err != nil {
			return err
		}
		if expected != nil && *expected != node.Version {
			return types.VersionError(id, *expected, node.Version)
		}

		before := *node
		if err := change(node); err != nil {
			return err
		}
		if err := appendHistory(tx, &before, models.ActionUpdate); err != nil {
			return err
		}

		node.Version = before.Version + 1
		return storeVersioned(tx, node, before.Version, map[string]any{
			"title":       node.Title,
			"description": node.Description,
			"data":        node.Data,
			"version":     node.Version,
		})
	})

	if err = translateError(id, err); err != nil {
		return nil, err
	}

	s.publish(ctx, models.ActionUpdate, node.Parent, node.ID)
	return node, nil
}

// storeVersioned writes columns only if the row is still at version.
// A lost race surfaces as a version error.
func storeVersioned(tx *gorm.DB, node *models.NodePoint, version uint64, columns map[string]any) error {
	result := tx.Model(&models.NodePoint{}).
		Where("id = ? AND version = ?", node.ID, version).
		Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("failed to store node %d: %w", node.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &types.NodeError{
			Kind:    types.ErrVersion,
			NodeID:  node.ID,
			Message: fmt.Sprintf("E_VERSION - Failed to update node %d due to concurrent modification", node.ID),
		}
	}
	return nil
}
