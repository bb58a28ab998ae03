// node_store.go
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
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"

	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/tree"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// dialect returns the normalized gorm dialector name of db
func dialect(db *gorm.DB) string {
	return db.Dialector.Name()
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports it.
// SQLite serializes writers itself and SQL Server has no FOR UPDATE clause.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	switch dialect(tx) {
	case "sqlite", "sqlserver":
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// withRecursive returns the CTE keyword for the dialect
func withRecursive(db *gorm.DB) string {
	if dialect(db) == "sqlserver" {
		return "WITH"
	}
	return "WITH RECURSIVE"
}

// recursiveUnion returns the set operator joining the recursive CTE terms.
// UNION drops repeated rows so a corrupted cycle terminates; SQL Server only
// accepts UNION ALL in recursive members.
func recursiveUnion(db *gorm.DB) string {
	if dialect(db) == "sqlserver" {
		return "UNION ALL"
	}
	return "UNION"
}

// selectDescendants loads id and every record below it, any state
func selectDescendants(tx *gorm.DB, id uint64) ([]models.NodePoint, error) {
	query := fmt.Sprintf(`%s subtree (id) AS (
	SELECT id FROM node_point WHERE id = ?
	%s
	SELECT n.id FROM node_point n INNER JOIN subtree s ON n.parent = s.id
)
SELECT n.* FROM node_point n INNER JOIN subtree s ON n.id = s.id ORDER BY n.id`,
		withRecursive(tx), recursiveUnion(tx))

	var records []models.NodePoint
	if err := tx.Raw(query, id).Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load descendants of %d: %w", id, err)
	}
	return records, nil
}

// selectLineage loads id and every record above it, any state
func selectLineage(tx *gorm.DB, id uint64) ([]models.NodePoint, error) {
	query := fmt.Sprintf(`%s lineage (id, parent) AS (
	SELECT id, parent FROM node_point WHERE id = ?
	%s
	SELECT n.id, n.parent FROM node_point n INNER JOIN lineage l ON n.id = l.parent
)
SELECT n.* FROM node_point n INNER JOIN lineage l ON n.id = l.id`,
		withRecursive(tx), recursiveUnion(tx))

	var records []models.NodePoint
	if err := tx.Raw(query, id).Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load ancestors of %d: %w", id, err)
	}
	return records, nil
}

// ancestorPath returns the records from id up to its root, id first
func ancestorPath(tx *gorm.DB, id uint64) ([]models.NodePoint, error) {
	records, err := selectLineage(tx, id)
	if err != nil {
		return nil, err
	}
	idx := tree.Build(records)
	ids := idx.Ancestors(id)
	path := make([]models.NodePoint, 0, len(ids))
	for _, a := range ids {
		path = append(path, idx.Get(a).NodePoint)
	}
	return path, nil
}

// ancestorIDs returns the set of ids from id up to its root, id included
func ancestorIDs(tx *gorm.DB, id uint64) (map[uint64]struct{}, error) {
	records, err := selectLineage(tx, id)
	if err != nil {
		return nil, err
	}
	set := make(map[uint64]struct{}, len(records))
	for _, a := range tree.Build(records).Ancestors(id) {
		set[a] = struct{}{}
	}
	return set, nil
}

// findNode loads a record in any state. Missing ids yield a NotFoundError.
func findNode(tx *gorm.DB, id uint64, lock bool) (*models.NodePoint, error) {
	q := tx
	if lock {
		q = lockForUpdate(tx)
	}
	var node models.NodePoint
	if err := q.Where("id = ?", id).First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFoundError(id, "Node %d not found.", id)
		}
		return nil, fmt.Errorf("failed to load node %d: %w", id, err)
	}
	return &node, nil
}

// findLiveNode loads a record that is not soft-deleted
func findLiveNode(tx *gorm.DB, id uint64, lock bool) (*models.NodePoint, error) {
	node, err := findNode(tx, id, lock)
	if err != nil {
		return nil, err
	}
	if node.Deleted {
		return nil, types.NotFoundError(id, "Node %d not found.", id)
	}
	return node, nil
}

// siblingTitleTaken reports whether a record other than exceptID already
// carries title under parent. Root level is compared NULL-safe and
// soft-deleted siblings still count.
func siblingTitleTaken(tx *gorm.DB, parent *uint64, title string, exceptID uint64) (bool, error) {
	q := tx.Model(&models.NodePoint{}).Where("title = ? AND id <> ?", title, exceptID)
	if parent == nil {
		q = q.Where("parent IS NULL")
	} else {
		q = q.Where("parent = ?", *parent)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check sibling titles: %w", err)
	}
	return count > 0, nil
}

// tagged labels the next statement with a SQL comment so it is easy to find
// in slow query logs
func tagged(tx *gorm.DB, name string) *gorm.DB {
	return tx.Clauses(hints.CommentBefore("select", "nodedb:"+name))
}

// isDuplicateKey reports a unique constraint violation from any supported driver
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Cannot insert duplicate key")
}

// translateError maps driver errors onto the node error kinds
func translateError(id uint64, err error) error {
	if err == nil {
		return nil
	}
	var nodeErr *types.NodeError
	if errors.As(err, &nodeErr) {
		return err
	}
	if isDuplicateKey(err) {
		return types.ConflictError(id, types.DuplicateNameMessage)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NotFoundError(id, "Node %d not found.", id)
	}
	return err
}
