package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// MoveFailure explains why one id of a batch move was skipped
type MoveFailure struct {
	ID     uint64 `json:"id"`
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
}

// MoveReport is the outcome of a batch move
type MoveReport struct {
	Moved  []models.NodePoint `json:"moved"`
	Failed []MoveFailure      `json:"failed"`
}

// MoveNode re-parents a live node under newParent, or to the root level when
// newParent is nil. The version is unchanged; the pre-move values are logged
// as an update.
func (s *NodeService) MoveNode(ctx context.Context, nodeID uint64, newParent *uint64) (*models.NodePoint, error) {
	var node *models.NodePoint
	var changed bool

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findLiveNode(tx, nodeID, true)
		if err != nil {
			return err
		}
		lineage, err := parentLineage(tx, nodeID, newParent)
		if err != nil {
			return err
		}
		node, changed, err = applyMove(tx, current, newParent, lineage)
		return err
	})

	err = translateError(nodeID, err)
	observe(events.ActionMove, err)
	if err != nil {
		return nil, err
	}

	if changed {
		s.Log.Info("node moved", "nodeId", nodeID, "parent", newParent)
		s.publish(ctx, events.ActionMove, newParent, nodeID)
	}
	return node, nil
}

// MoveMultipleNodePoints moves each id under newParent independently. The
// ancestor set of newParent is read once before the loop; every id is
// checked against it and committed in its own transaction. Failed ids are
// logged and reported, never raised. Only an unusable newParent fails the
// whole call.
func (s *NodeService) MoveMultipleNodePoints(ctx context.Context, newParent *uint64, ids []uint64) (*MoveReport, error) {
	report := &MoveReport{
		Moved:  make([]models.NodePoint, 0, len(ids)),
		Failed: make([]MoveFailure, 0),
	}

	db := s.DB.WithContext(ctx)
	var lineage map[uint64]struct{}
	if newParent != nil {
		if _, err := findNode(db, *newParent, false); err != nil {
			observe("moveMultiple", err)
			return nil, err
		}
		var err error
		if lineage, err = ancestorIDs(db, *newParent); err != nil {
			return nil, err
		}
	}

	moved := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var node *models.NodePoint
		var changed bool
		err := db.Transaction(func(tx *gorm.DB) error {
			current, err := findLiveNode(tx, id, true)
			if err != nil {
				return err
			}
			node, changed, err = applyMove(tx, current, newParent, lineage)
			return err
		})
		err = translateError(id, err)
		observe(events.ActionMove, err)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			s.Log.Warn("skipped node in batch move", "nodeId", id, "parent", newParent, "error", err)
			report.Failed = append(report.Failed, MoveFailure{ID: id, Reason: err.Error(), Kind: types.KindName(err)})
			continue
		}
		report.Moved = append(report.Moved, *node)
		if changed {
			moved = append(moved, id)
		}
	}

	if len(moved) > 0 {
		s.Log.Info("nodes moved", "count", len(moved), "failed", len(report.Failed), "parent", newParent)
		s.publish(ctx, events.ActionMove, newParent, moved...)
	}
	return report, nil
}

// parentLineage validates newParent for a single move and returns its ancestor set
func parentLineage(tx *gorm.DB, nodeID uint64, newParent *uint64) (map[uint64]struct{}, error) {
	if newParent == nil {
		return nil, nil
	}
	if *newParent == nodeID {
		return nil, types.CycleError(nodeID, *newParent)
	}
	if _, err := findNode(tx, *newParent, false); err != nil {
		return nil, err
	}
	return ancestorIDs(tx, *newParent)
}

// applyMove checks the cycle and sibling title invariants and re-parents node.
// lineage holds newParent and all of its ancestors. Moving a node to the
// parent it already has is a no-op and reports changed=false.
func applyMove(tx *gorm.DB, node *models.NodePoint, newParent *uint64, lineage map[uint64]struct{}) (*models.NodePoint, bool, error) {
	if newParent != nil {
		if _, loop := lineage[node.ID]; loop || *newParent == node.ID {
			return nil, false, types.CycleError(node.ID, *newParent)
		}
	}
	if models.SameParent(node.Parent, newParent) {
		return node, false, nil
	}

	taken, err := siblingTitleTaken(tx, newParent, node.Title, node.ID)
	if err != nil {
		return nil, false, err
	}
	if taken {
		return nil, false, types.ConflictError(node.ID, types.DuplicateNameMessage)
	}

	if err := appendHistory(tx, node, models.ActionUpdate); err != nil {
		return nil, false, err
	}
	if err := storeVersioned(tx, node, node.Version, map[string]any{"parent": newParent}); err != nil {
		return nil, false, err
	}

	node.Parent = newParent
	return node, true, nil
}
