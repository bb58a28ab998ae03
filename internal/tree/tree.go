// tree.go
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

// Package tree derives the parent to children structure of a flat set of node
// records. An Index is built once per read and discarded; it is never
// mutated after Build returns.
package tree

import (
	"github.com/localnerve/jam-build-nodedb/internal/models"
)

// Node is a record with its derived children, in the JSON shape the UI consumes.
type Node struct {
	models.NodePoint
	Children []*Node `json:"children"`
}

// Index maps every record to its children.
type Index struct {
	nodes map[uint64]*Node
	roots []*Node
}

// Build indexes records in a single pass. Records whose parent does not
// resolve are promoted to roots rather than dropped. Children keep the order
// of the input.
func Build(records []models.NodePoint) *Index {
	idx := &Index{
		nodes: make(map[uint64]*Node, len(records)),
		roots: make([]*Node, 0),
	}

	ordered := make([]*Node, 0, len(records))
	for i := range records {
		n := &Node{NodePoint: records[i], Children: make([]*Node, 0)}
		if _, dup := idx.nodes[n.ID]; dup {
			continue
		}
		idx.nodes[n.ID] = n
		ordered = append(ordered, n)
	}

	for _, n := range ordered {
		if n.Parent != nil && *n.Parent != n.ID {
			if parent, ok := idx.nodes[*n.Parent]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		idx.roots = append(idx.roots, n)
	}

	return idx
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	return len(idx.nodes)
}

// Get returns the indexed node or nil.
func (idx *Index) Get(id uint64) *Node {
	return idx.nodes[id]
}

// Roots returns the forest.
func (idx *Index) Roots() []*Node {
	return idx.roots
}

// Ancestors returns the ids from id up to its root, id first.
// Unknown ids yield nil.
func (idx *Index) Ancestors(id uint64) []uint64 {
	n, ok := idx.nodes[id]
	if !ok {
		return nil
	}

	path := []uint64{id}
	seen := map[uint64]struct{}{id: {}}
	for n.Parent != nil {
		parent, ok := idx.nodes[*n.Parent]
		if !ok {
			break
		}
		// a corrupted table can hold a cycle, stop instead of spinning
		if _, loop := seen[parent.ID]; loop {
			break
		}
		seen[parent.ID] = struct{}{}
		path = append(path, parent.ID)
		n = parent
	}
	return path
}

// Descendants returns the ids of id and everything below it.
// Unknown ids yield an empty set.
func (idx *Index) Descendants(id uint64) map[uint64]struct{} {
	out := make(map[uint64]struct{})
	root, ok := idx.nodes[id]
	if !ok {
		return out
	}

	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := out[n.ID]; seen {
			continue
		}
		out[n.ID] = struct{}{}
		stack = append(stack, n.Children...)
	}
	return out
}

// Levels groups the subtree of id by depth, id alone at level 0.
// Unknown ids yield nil.
func (idx *Index) Levels(id uint64) [][]uint64 {
	root, ok := idx.nodes[id]
	if !ok {
		return nil
	}

	seen := map[uint64]struct{}{id: {}}
	levels := [][]uint64{{id}}
	current := []*Node{root}
	for len(current) > 0 {
		next := make([]*Node, 0)
		ids := make([]uint64, 0)
		for _, n := range current {
			for _, c := range n.Children {
				if _, dup := seen[c.ID]; dup {
					continue
				}
				seen[c.ID] = struct{}{}
				next = append(next, c)
				ids = append(ids, c.ID)
			}
		}
		if len(ids) > 0 {
			levels = append(levels, ids)
		}
		current = next
	}
	return levels
}

// Flatten lists the subtree of id depth-first, parents before children.
func (idx *Index) Flatten(id uint64) []models.NodePoint {
	root, ok := idx.nodes[id]
	if !ok {
		return nil
	}
	out := make([]models.NodePoint, 0)
	walk([]*Node{root}, map[uint64]struct{}{}, func(n *Node) bool {
		out = append(out, n.NodePoint)
		return false
	})
	return out
}

// FindByTitle searches depth-first for an exact title match; first match wins.
func FindByTitle(nodes []*Node, title string) *Node {
	var found *Node
	walk(nodes, map[uint64]struct{}{}, func(n *Node) bool {
		if n.Title == title {
			found = n
			return true
		}
		return false
	})
	return found
}

// walk visits nodes depth-first in sibling order until visit returns true.
// Each node is visited at most once.
func walk(nodes []*Node, seen map[uint64]struct{}, visit func(*Node) bool) bool {
	for _, n := range nodes {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		if visit(n) {
			return true
		}
		if walk(n.Children, seen, visit) {
			return true
		}
	}
	return false
}
