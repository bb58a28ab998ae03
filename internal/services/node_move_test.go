package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/models"
	"github.com/localnerve/jam-build-nodedb/internal/tree"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

func TestMoveNode_UnderOwnDescendantIsCycle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	r, _, c2 := orgTree(t, svc)

	_, err := svc.MoveNode(ctx, r.ID, &c2.ID)
	require.ErrorIs(t, err, types.ErrCycle)
	assert.Equal(t, fmt.Sprintf("Cannot move node %d under its own descendant %d.", r.ID, c2.ID), err.Error())

	_, err = svc.MoveNode(ctx, r.ID, &r.ID)
	assert.ErrorIs(t, err, types.ErrCycle)

	stored, err := svc.GetNode(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Parent)
}

func TestMoveNode_CycleIffTargetIsDescendant(t *testing.T) {
	titles := []string{"Org", "Dept A", "Team 1", "Dept B"}

	// a fresh tree per pair: Org -> Dept A -> Team 1, Org -> Dept B
	build := func(t *testing.T) (*NodeService, []*models.NodePoint) {
		svc, _ := setupService(t)
		r, c1, c2 := orgTree(t, svc)
		c3 := mustCreate(t, svc, r, "Dept B")
		return svc, []*models.NodePoint{r, c1, c2, c3}
	}

	for i := range titles {
		for j := range titles {
			t.Run(titles[i]+" under "+titles[j], func(t *testing.T) {
				svc, nodes := build(t)
				ctx := context.Background()
				a, b := nodes[i], nodes[j]

				all, err := svc.GetAllNodes(ctx, true)
				require.NoError(t, err)
				_, descendant := tree.Build(all).Descendants(a.ID)[b.ID]

				_, err = svc.MoveNode(ctx, a.ID, &b.ID)
				if descendant {
					assert.ErrorIs(t, err, types.ErrCycle)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	}
}

func TestMoveNode_Success(t *testing.T) {
	svc, rec := setupService(t)
	ctx := context.Background()
	r, c1, c2 := orgTree(t, svc)
	c3 := mustCreate(t, svc, r, "Dept B")

	moved, err := svc.MoveNode(ctx, c2.ID, &c3.ID)
	require.NoError(t, err)
	assert.Equal(t, &c3.ID, moved.Parent)
	assert.Equal(t, uint64(1), moved.Version, "moves keep the version")

	stored, err := svc.GetNode(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, &c3.ID, stored.Parent)

	history, err := svc.FetchNodeHistory(ctx, c2.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ActionUpdate, history[0].Action, "moves are logged as updates")
	assert.Equal(t, uint64(1), history[0].Version)
	assert.Equal(t, "Team 1", history[0].Title)

	evts := rec.Events()
	last := evts[len(evts)-1]
	assert.Equal(t, events.ActionMove, last.Action)
	assert.Equal(t, []uint64{c2.ID}, last.NodeIDs)
	assert.Equal(t, &c3.ID, last.Parent)

	// to the root level
	moved, err = svc.MoveNode(ctx, c1.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.Parent)
}

func TestMoveNode_SameParentIsNoop(t *testing.T) {
	svc, rec := setupService(t)
	ctx := context.Background()
	r, c1, _ := orgTree(t, svc)
	published := len(rec.Events())

	moved, err := svc.MoveNode(ctx, c1.ID, &r.ID)
	require.NoError(t, err)
	assert.Equal(t, &r.ID, moved.Parent)

	history, err := svc.FetchNodeHistory(ctx, c1.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, rec.Events(), published)
}

func TestMoveNode_NotFound(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	r, c1, c2 := orgTree(t, svc)

	_, err := svc.MoveNode(ctx, 999, &r.ID)
	assert.ErrorIs(t, err, types.ErrNotFound, "missing node")

	_, err = svc.MoveNode(ctx, c2.ID, ptr(uint64(999)))
	assert.ErrorIs(t, err, types.ErrNotFound, "missing parent")

	_, err = svc.DeleteNode(ctx, c1.ID)
	require.NoError(t, err)
	_, err = svc.MoveNode(ctx, c1.ID, nil)
	assert.ErrorIs(t, err, types.ErrNotFound, "tombstoned node")
}

func TestMoveNode_UnderTombstonedParent(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	r, c1, c2 := orgTree(t, svc)
	c3 := mustCreate(t, svc, r, "Dept B")

	_, err := svc.DeleteNode(ctx, c3.ID)
	require.NoError(t, err)

	moved, err := svc.MoveNode(ctx, c2.ID, &c3.ID)
	require.NoError(t, err)
	assert.Equal(t, &c3.ID, moved.Parent)

	_, err = svc.MoveNode(ctx, c1.ID, &c2.ID)
	require.NoError(t, err)
	_, err = svc.DeleteNode(ctx, c1.ID)
	require.NoError(t, err)
	_, err = svc.MoveNode(ctx, c3.ID, &c1.ID)
	assert.ErrorIs(t, err, types.ErrNotFound, "c3 itself is tombstoned")

	// the lineage of a tombstone still guards against cycles
	report, err := svc.MoveMultipleNodePoints(ctx, &c3.ID, []uint64{r.ID})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "cycle", report.Failed[0].Kind)

	fresh := mustCreate(t, svc, nil, "Staging")
	report, err = svc.MoveMultipleNodePoints(ctx, &c3.ID, []uint64{fresh.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{fresh.ID}, ids(report.Moved))
	assert.Empty(t, report.Failed)
}

func TestMoveNode_SiblingTitlesCompareVerbatim(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, nil, "Org")
	mustCreate(t, svc, r, "Dept A")
	other := mustCreate(t, svc, nil, "Staging")
	padded := mustCreate(t, svc, other, " Dept A")

	moved, err := svc.MoveNode(ctx, padded.ID, &r.ID)
	require.NoError(t, err)
	assert.Equal(t, " Dept A", moved.Title)
}

func TestMoveNode_DuplicateSiblingTitle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, nil, "Org")
	mustCreate(t, svc, r, "Dept A")
	mustCreate(t, svc, r, "Dept A") // create does not check sibling titles

	elsewhere := mustCreate(t, svc, nil, "Staging")
	third := mustCreate(t, svc, elsewhere, "Dept A")

	_, err := svc.MoveNode(ctx, third.ID, &r.ID)
	require.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, types.DuplicateNameMessage, err.Error())

	stored, err := svc.GetNode(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, &elsewhere.ID, stored.Parent)
}

func TestMoveNode_DuplicateTitleAtRootLevel(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	mustCreate(t, svc, nil, "Org")
	holder := mustCreate(t, svc, nil, "Holder")
	nested := mustCreate(t, svc, holder, "Org")

	_, err := svc.MoveNode(ctx, nested.ID, nil)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestMoveNode_TombstonedSiblingStillClaimsTitle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, nil, "Org")
	old := mustCreate(t, svc, r, "Dept A")
	_, err := svc.DeleteNode(ctx, old.ID)
	require.NoError(t, err)

	other := mustCreate(t, svc, nil, "Staging")
	incoming := mustCreate(t, svc, other, "Dept A")

	_, err = svc.MoveNode(ctx, incoming.ID, &r.ID)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestMoveMultipleNodePoints_PartialSuccess(t *testing.T) {
	svc, rec := setupService(t)
	ctx := context.Background()

	// B is an ancestor of R2, so moving B under R2 is a cycle
	b := mustCreate(t, svc, nil, "B")
	r2 := mustCreate(t, svc, b, "R2")
	a := mustCreate(t, svc, nil, "A")
	c := mustCreate(t, svc, nil, "C")

	report, err := svc.MoveMultipleNodePoints(ctx, &r2.ID, []uint64{a.ID, b.ID, c.ID})
	require.NoError(t, err)

	assert.Equal(t, []uint64{a.ID, c.ID}, ids(report.Moved))
	require.Len(t, report.Failed, 1)
	assert.Equal(t, b.ID, report.Failed[0].ID)
	assert.Equal(t, "cycle", report.Failed[0].Kind)

	for _, id := range []uint64{a.ID, c.ID} {
		stored, err := svc.GetNode(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, &r2.ID, stored.Parent)
	}
	stored, err := svc.GetNode(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Parent)

	evts := rec.Events()
	last := evts[len(evts)-1]
	assert.Equal(t, events.ActionMove, last.Action)
	assert.Equal(t, []uint64{a.ID, c.ID}, last.NodeIDs)

	for _, id := range []uint64{a.ID, c.ID} {
		history, err := svc.FetchNodeHistory(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, models.ActionUpdate, history[0].Action)
	}
}

func TestMoveMultipleNodePoints_CollectsEveryKind(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	target := mustCreate(t, svc, nil, "Target")
	mustCreate(t, svc, target, "Taken")
	holder := mustCreate(t, svc, nil, "Holder")
	dup := mustCreate(t, svc, holder, "Taken")
	gone := mustCreate(t, svc, nil, "Gone")
	_, err := svc.DeleteNode(ctx, gone.ID)
	require.NoError(t, err)
	ok := mustCreate(t, svc, nil, "Fine")

	report, err := svc.MoveMultipleNodePoints(ctx, &target.ID, []uint64{dup.ID, gone.ID, 999, ok.ID, ok.ID})
	require.NoError(t, err)

	assert.Equal(t, []uint64{ok.ID}, ids(report.Moved))
	kinds := map[uint64]string{}
	for _, f := range report.Failed {
		kinds[f.ID] = f.Kind
	}
	assert.Equal(t, map[uint64]string{dup.ID: "conflict", gone.ID: "notFound", 999: "notFound"}, kinds)
}

func TestMoveMultipleNodePoints_ToRoot(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	_, c1, c2 := orgTree(t, svc)

	report, err := svc.MoveMultipleNodePoints(ctx, nil, []uint64{c1.ID, c2.ID})
	require.NoError(t, err)
	assert.Len(t, report.Moved, 2)
	assert.Empty(t, report.Failed)
	for _, n := range report.Moved {
		assert.Nil(t, n.Parent)
	}
}

func TestMoveMultipleNodePoints_MissingParentFailsCall(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	_, c1, _ := orgTree(t, svc)

	_, err := svc.MoveMultipleNodePoints(ctx, ptr(uint64(999)), []uint64{c1.ID})
	assert.ErrorIs(t, err, types.ErrNotFound)

	report, err := svc.MoveMultipleNodePoints(ctx, &c1.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Moved)
	assert.Empty(t, report.Failed)
}
