// node_delete.go
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

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/tree"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// DeleteNode tombstones a live node. A second call fails with not found.
func (s *NodeService) DeleteNode(ctx context.Context, id uint64) (*models.NodePoint, error) {
	node, err := s.toggleDeleted(ctx, id, true)
	observe(models.ActionDelete, err)
	return node, err
}

// RestoreNode revives a tombstoned node. Live or missing nodes fail with not found.
func (s *NodeService) RestoreNode(ctx context.Context, id uint64) (*models.NodePoint, error) {
	node, err := s.toggleDeleted(ctx, id, false)
	observe(models.ActionRestore, err)
	return node, err
}

// toggleDeleted flips the tombstone of a node currently in the opposite
// state, logs its prior values and bumps the version
func (s *NodeService) toggleDeleted(ctx context.Context, id uint64, deleted bool) (*models.NodePoint, error) {
	action := models.ActionRestore
	if deleted {
		action = models.ActionDelete
	}

	var node *models.NodePoint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if node, err = findNode(tx, id, true); err != nil {
			return err
		}
		if node.Deleted == deleted {
			if deleted {
				return types.NotFoundError(id, "Node %d not found.", id)
			}
			return types.NotFoundError(id, "Node %d is not deleted.", id)
		}

		if err := appendHistory(tx, node, action); err != nil {
			return err
		}

		previous := node.Version
		node.Deleted = deleted
		node.Version = previous + 1
		return storeVersioned(tx, node, previous, map[string]any{
			"deleted": node.Deleted,
			"version": node.Version,
		})
	})

	if err = translateError(id, err); err != nil {
		return nil, err
	}

	s.Log.Info("node "+action+"d", "nodeId", id, "version", node.Version)
	s.publish(ctx, action, node.Parent, id)
	return node, nil
}

// HardDeleteNode permanently removes a node and its entire subtree, whatever
// their tombstone state, and returns the node as it was before removal.
// No history is written; existing history rows are kept.
func (s *NodeService) HardDeleteNode(ctx context.Context, id uint64) (*models.NodePoint, error) {
	var root *models.NodePoint
	var purged int

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if root, err = findNode(tx, id, true); err != nil {
			return err
		}

		records, err := selectDescendants(tx, id)
		if err != nil {
			return err
		}
		idx := tree.Build(records)
		levels := idx.Levels(id)
		subtree := idx.Descendants(id)

		// leaves first, the parent key has no ON DELETE action
		for i := len(levels) - 1; i >= 0; i-- {
			res := tx.Where("id IN ?", levels[i]).Delete(&models.NodePoint{})
			if res.Error != nil {
				return fmt.Errorf("failed to purge subtree of node %d: %w", id, res.Error)
			}
			purged += int(res.RowsAffected)
		}
		if purged != len(subtree) {
			return fmt.Errorf("purge of node %d removed %d of %d records", id, purged, len(subtree))
		}
		return nil
	})

	err = translateError(id, err)
	observe(events.ActionPurge, err)
	if err != nil {
		return nil, err
	}

	s.Log.Info("node purged", "nodeId", id, "count", purged)
	s.publish(ctx, events.ActionPurge, root.Parent, id)
	return root, nil
}
