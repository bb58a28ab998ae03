// Package seed imports node trees from YAML, typically an organization with
// its departments and teams:
//
//	nodes:
//	  - title: Acme
//	    data: {icon: building}
//	    children:
//	      - title: Engineering
//	        children:
//	          - title: Platform
//
// Roots whose title already appears in the live forest are skipped, so a
// seed file can be applied repeatedly.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/services"
	"github.com/localnerve/jam-build-nodedb/internal/tree"
)

// Entry is one node of a seed file and its subtree
type Entry struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Data        map[string]any `yaml:"data"`
	Children    []Entry        `yaml:"children"`
}

type file struct {
	Nodes []Entry `yaml:"nodes"`
}

// Store is the part of the node service the importer needs
type Store interface {
	GetAllNodes(ctx context.Context, includeDeleted bool) ([]models.NodePoint, error)
	CreateNode(ctx context.Context, in services.CreateInput) (*models.NodePoint, error)
}

// Result lists the roots created and the root titles skipped
type Result struct {
	Created []models.NodePoint
	Skipped []string
}

// Parse decodes a seed file. Unknown keys and blank titles are rejected.
func Parse(r io.Reader) ([]Entry, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i := range f.Nodes {
		if err := validate(&f.Nodes[i], fmt.Sprintf("nodes[%d]", i)); err != nil {
			return nil, err
		}
	}
	return f.Nodes, nil
}

func validate(e *Entry, path string) error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%s: title is required", path)
	}
	if _, err := models.NewJSON(e.Data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for i := range e.Children {
		if err := validate(&e.Children[i], fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Import creates every entry whose root title is not already in the live
// forest. Each node commits on its own; a failure stops the import and
// reports what was created so far.
func Import(ctx context.Context, store Store, entries []Entry, log *logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.NewNop()
	}

	result := &Result{Created: make([]models.NodePoint, 0), Skipped: make([]string, 0)}

	existing, err := store.GetAllNodes(ctx, false)
	if err != nil {
		return result, err
	}
	roots := tree.Build(existing).Roots()

	for _, entry := range entries {
		if found := tree.FindByTitle(roots, entry.Title); found != nil {
			log.Info("seed root already present, skipping", "title", entry.Title, "id", found.ID)
			result.Skipped = append(result.Skipped, entry.Title)
			continue
		}

		root, err := create(ctx, store, nil, entry)
		if root != nil {
			result.Created = append(result.Created, *root)
		}
		if err != nil {
			return result, err
		}
		log.Info("seeded tree", "title", root.Title, "id", root.ID)
	}
	return result, nil
}

func create(ctx context.Context, store Store, parent *uint64, e Entry) (*models.NodePoint, error) {
	data, err := models.NewJSON(e.Data)
	if err != nil {
		return nil, err
	}
	node, err := store.CreateNode(ctx, services.CreateInput{
		Parent:      parent,
		Title:       e.Title,
		Description: e.Description,
		Data:        &data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %q: %w", e.Title, err)
	}
	for _, child := range e.Children {
		if _, err := create(ctx, store, &node.ID, child); err != nil {
			return node, err
		}
	}
	return node, nil
}
