package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/jam-build-nodedb/internal/types"
)

func seedSearch(t *testing.T, svc *NodeService) {
	t.Helper()
	ctx := context.Background()
	inputs := []CreateInput{
		{Title: "Warehouse", Description: "north site"},
		{Title: "Shelf 1", Data: jsonOf(t, map[string]any{"icon": "box", "tag": "fragile"})},
		{Title: "Shelf 2", Description: "Fragile goods"},
		{Title: "100% cotton"},
		{Title: "Shelf 3", Data: jsonOf(t, map[string]any{"tag": "fragile"})},
	}
	for _, in := range inputs {
		_, err := svc.CreateNode(ctx, in)
		require.NoError(t, err)
	}
}

func titles(t *testing.T, svc *NodeService, term string, take, skip *int) []string {
	t.Helper()
	results, err := svc.SearchNodes(context.Background(), term, take, skip)
	require.NoError(t, err)
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}

func TestSearchNodes_MatchesTitleDescriptionAndData(t *testing.T) {
	svc, _ := setupService(t)
	seedSearch(t, svc)

	assert.Equal(t, []string{"Shelf 1", "Shelf 2", "Shelf 3"}, titles(t, svc, "Shelf", nil, nil))
	assert.Equal(t, []string{"Warehouse"}, titles(t, svc, "north", nil, nil))
	assert.Equal(t, []string{"Shelf 1"}, titles(t, svc, "box", nil, nil))
}

func TestSearchNodes_CaseSensitive(t *testing.T) {
	svc, _ := setupService(t)
	seedSearch(t, svc)

	assert.Equal(t, []string{"Shelf 1", "Shelf 3"}, titles(t, svc, "fragile", nil, nil))
	assert.Equal(t, []string{"Shelf 2"}, titles(t, svc, "Fragile", nil, nil))
	assert.Empty(t, titles(t, svc, "shelf", nil, nil))
}

func TestSearchNodes_WildcardsAreLiteral(t *testing.T) {
	svc, _ := setupService(t)
	seedSearch(t, svc)

	assert.Equal(t, []string{"100% cotton"}, titles(t, svc, "%", nil, nil))
	assert.Empty(t, titles(t, svc, "_", nil, nil))
}

func TestSearchNodes_ExcludesTombstones(t *testing.T) {
	svc, _ := setupService(t)
	seedSearch(t, svc)

	results, err := svc.SearchNodes(context.Background(), "Shelf 2", nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	_, err = svc.DeleteNode(context.Background(), results[0].ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shelf 1", "Shelf 3"}, titles(t, svc, "Shelf", nil, nil))
}

func TestSearchNodes_Paging(t *testing.T) {
	svc, _ := setupService(t)
	seedSearch(t, svc)

	assert.Equal(t, []string{"Shelf 1", "Shelf 2"}, titles(t, svc, "Shelf", ptr(2), nil))
	assert.Equal(t, []string{"Shelf 2", "Shelf 3"}, titles(t, svc, "Shelf", ptr(2), ptr(1)))
	assert.Empty(t, titles(t, svc, "Shelf", ptr(0), nil))
	assert.Empty(t, titles(t, svc, "Shelf", nil, ptr(10)))

	svc.MaxTake = 1
	assert.Equal(t, []string{"Shelf 1"}, titles(t, svc, "Shelf", ptr(50), nil))
}

func TestSearchNodes_Validation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.SearchNodes(ctx, "  ", nil, nil)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.SearchNodes(ctx, "x", ptr(-1), nil)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.SearchNodes(ctx, "x", nil, ptr(-1))
	assert.ErrorIs(t, err, types.ErrValidation)
}
