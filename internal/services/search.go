package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_", "[", "![")

// containsClause returns a case-sensitive substring match over title,
// description and the serialized data, plus its arguments
func containsClause(db *gorm.DB, term string) (string, []any) {
	switch dialect(db) {
	case "sqlite":
		// LIKE folds ASCII case in sqlite, instr does not
		return "instr(title, ?) > 0 OR instr(description, ?) > 0 OR instr(data, ?) > 0",
			[]any{term, term, term}
	}

	pattern := "%" + likeEscaper.Replace(term) + "%"
	var expr string
	switch dialect(db) {
	case "postgres":
		expr = "title LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!' OR CAST(data AS TEXT) LIKE ? ESCAPE '!'"
	case "mysql":
		expr = "title LIKE BINARY ? ESCAPE '!' OR description LIKE BINARY ? ESCAPE '!' OR CAST(data AS CHAR) LIKE BINARY ? ESCAPE '!'"
	case "sqlserver":
		expr = "title COLLATE Latin1_General_CS_AS LIKE ? ESCAPE '!' OR " +
			"description COLLATE Latin1_General_CS_AS LIKE ? ESCAPE '!' OR " +
			"data COLLATE Latin1_General_CS_AS LIKE ? ESCAPE '!'"
	default:
		expr = "title LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!' OR data LIKE ? ESCAPE '!'"
	}
	return expr, []any{pattern, pattern, pattern}
}

// pageBounds resolves take and skip against the configured cap
func (s *NodeService) pageBounds(take, skip *int) (int, int, error) {
	limit, offset := s.MaxTake, 0
	if take != nil {
		if *take < 0 {
			return 0, 0, types.ValidationError("take must not be negative.")
		}
		limit = min(*take, s.MaxTake)
	}
	if skip != nil {
		if *skip < 0 {
			return 0, 0, types.ValidationError("skip must not be negative.")
		}
		offset = *skip
	}
	return limit, offset, nil
}

// SearchNodes finds live nodes whose title, description or data text
// contains term. Results are in id order, take defaults to and is capped by
// MaxTake.
func (s *NodeService) SearchNodes(ctx context.Context, term string, take, skip *int) ([]models.NodePoint, error) {
	if strings.TrimSpace(term) == "" {
		return nil, types.ValidationError("Search term is required.")
	}
	limit, offset, err := s.pageBounds(take, skip)
	if err != nil {
		return nil, err
	}

	results := make([]models.NodePoint, 0)
	if limit == 0 {
		return results, nil
	}

	db := tagged(s.DB.WithContext(ctx), "search")
	expr, args := containsClause(db, term)
	err = db.Where("deleted = ?", false).
		Where("("+expr+")", args...).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search nodes: %w", err)
	}
	return results, nil
}
