// node.go
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

package models

import (
	"time"
)

// History actions. A move is logged as an update.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRestore = "restore"
)

// NodePoint is a single record of the hierarchical node store.
// Parent is nil for roots. Children are never stored, see the tree package.
// The parent key has no ON DELETE action: purges remove leaves first, and
// SQL Server refuses cascades on self references.
type NodePoint struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Parent      *uint64    `gorm:"column:parent;index" json:"parent"`
	ParentNode  *NodePoint `gorm:"foreignKey:Parent;references:ID" json:"-"`
	Title       string     `gorm:"column:title;size:255;not null" json:"title"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	Data        JSON       `gorm:"column:data" json:"data"`
	Version     uint64     `gorm:"column:version;not null;default:1" json:"version"`
	Deleted     bool       `gorm:"column:deleted;not null;default:false;index" json:"deleted"`
}

// NodePointHistory is an immutable audit entry holding the state of a node
// as it was before (or, for create, as it was after) a mutation.
type NodePointHistory struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	NodePointID uint64    `gorm:"column:node_point_id;not null;index" json:"nodePointId"`
	Version     uint64    `gorm:"column:version;not null" json:"version"`
	Title       string    `gorm:"column:title;size:255;not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Data        JSON      `gorm:"column:data" json:"data"`
	Action      string    `gorm:"column:action;size:16;not null" json:"action"`
	Timestamp   time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

// TableName overrides the table name for NodePoint
func (NodePoint) TableName() string {
	return "node_point"
}

// TableName overrides the table name for NodePointHistory
func (NodePointHistory) TableName() string {
	return "node_point_history"
}

// SameParent compares parent references, treating two roots as equal.
func SameParent(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Snapshot builds the history entry for the node's current values.
func (n *NodePoint) Snapshot(action string, at time.Time) NodePointHistory {
	return NodePointHistory{
		NodePointID: n.ID,
		Version:     n.Version,
		Title:       n.Title,
		Description: n.Description,
		Data:        n.Data,
		Action:      action,
		Timestamp:   at,
	}
}
