package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/localnerve/jam-build-nodedb/internal/database"
	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/testutil"
	"github.com/localnerve/jam-build-nodedb/internal/types"
)

// TestIntegration_ContainerDatabase runs the node store against a real server.
// Set DB_TYPE, DB_IMAGE and the DB_* credentials to enable it, REDIS_IMAGE to
// include the event bus.
func TestIntegration_ContainerDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("DB_IMAGE") == "" {
		t.Skip("DB_IMAGE not set")
	}

	tc, err := testutil.CreateAllTestContainers(t)
	require.NoError(t, err)
	t.Cleanup(func() { tc.Terminate(t) })

	log := logger.NewNop()
	db, err := database.Connect(tc.Config, log)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	publisher := events.NewNoop()
	var sub *redis.PubSub
	if tc.Config.RedisAddr != "" {
		publisher, err = events.NewRedis(log, tc.Config.RedisAddr, tc.Config.RedisChannel)
		require.NoError(t, err)
		t.Cleanup(func() { publisher.Close() })

		client := redis.NewClient(&redis.Options{Addr: tc.Config.RedisAddr})
		t.Cleanup(func() { client.Close() })
		sub = client.Subscribe(context.Background(), tc.Config.RedisChannel)
		_, err = sub.Receive(context.Background())
		require.NoError(t, err)
		t.Cleanup(func() { sub.Close() })
	}

	svc := NewNodeService(db, log, publisher, 25)
	ctx := context.Background()

	org, err := svc.CreateNode(ctx, CreateInput{Title: "Org"})
	require.NoError(t, err)
	dept, err := svc.CreateNode(ctx, CreateInput{Parent: &org.ID, Title: "Dept A", Data: jsonOf(t, map[string]any{"floor": "Second"})})
	require.NoError(t, err)
	team, err := svc.CreateNode(ctx, CreateInput{Parent: &dept.ID, Title: "Team 1"})
	require.NoError(t, err)

	if sub != nil {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var evt events.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
		assert.Equal(t, "create", evt.Action)
		assert.Equal(t, []uint64{org.ID}, evt.NodeIDs)
	}

	t.Run("recursive queries", func(t *testing.T) {
		subtree, err := svc.FetchHierarchy(ctx, org.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint64{org.ID, dept.ID, team.ID}, ids(subtree))

		path, err := svc.FetchAncestors(ctx, team.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint64{team.ID, dept.ID, org.ID}, ids(path))
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := svc.MoveNode(ctx, org.ID, &team.ID)
		assert.True(t, errors.Is(err, types.ErrCycle))
	})

	t.Run("case sensitive search", func(t *testing.T) {
		found, err := svc.SearchNodes(ctx, "Second", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint64{dept.ID}, ids(found))

		found, err = svc.SearchNodes(ctx, "second", nil, nil)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("concurrent updates", func(t *testing.T) {
		current, err := svc.GetNode(ctx, team.ID)
		require.NoError(t, err)

		var g errgroup.Group
		results := make([]error, 4)
		for i := range results {
			g.Go(func() error {
				_, results[i] = svc.UpdateNode(ctx, team.ID, UpdateInput{
					Description: ptr("writer"),
					Version:     ptr(current.Version),
				})
				return nil
			})
		}
		require.NoError(t, g.Wait())

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, types.ErrVersion), err)
		}
		assert.Equal(t, 1, succeeded)

		after, err := svc.GetNode(ctx, team.ID)
		require.NoError(t, err)
		assert.Equal(t, current.Version+1, after.Version)
	})

	t.Run("purge", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		_, err := svc.HardDeleteNode(ctx, org.ID)
		require.NoError(t, err)
		_, err = svc.GetNode(ctx, team.ID)
		assert.True(t, errors.Is(err, types.ErrNotFound))

		history, err := svc.FetchNodeHistory(ctx, team.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, history)
	})
}
