package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/jam-build-nodedb/internal/models"
)

// now is replaced in tests that need deterministic timestamps
var now = func() time.Time { return time.Now().UTC() }

// appendHistory records the values of node under action, inside tx
func appendHistory(tx *gorm.DB, node *models.NodePoint, action string) error {
	entry := node.Snapshot(action, now())
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append %s history for node %d: %w", action, node.ID, err)
	}
	historyEntries.WithLabelValues(action).Inc()
	return nil
}

// appendHistoryBatch records one entry per node in a single insert
func appendHistoryBatch(tx *gorm.DB, nodes []models.NodePoint, action string) error {
	if len(nodes) == 0 {
		return nil
	}
	at := now()
	entries := make([]models.NodePointHistory, len(nodes))
	for i := range nodes {
		entries[i] = nodes[i].Snapshot(action, at)
	}
	if err := tx.Create(&entries).Error; err != nil {
		return fmt.Errorf("failed to append %s history: %w", action, err)
	}
	historyEntries.WithLabelValues(action).Add(float64(len(entries)))
	return nil
}

// FetchNodeHistory returns the audit trail of a node, newest first.
// Unknown or purged ids return whatever history remains, possibly none.
func (s *NodeService) FetchNodeHistory(ctx context.Context, nodeID uint64) ([]models.NodePointHistory, error) {
	entries := make([]models.NodePointHistory, 0)
	err := tagged(s.DB.WithContext(ctx), "history").
		Where("node_point_id = ?", nodeID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for node %d: %w", nodeID, err)
	}
	return entries, nil
}
