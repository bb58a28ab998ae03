package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/jam-build-nodedb/internal/logger"
)

func TestEncode_Shape(t *testing.T) {
	parent := uint64(3)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := Encode(Event{Action: "move", NodeIDs: []uint64{7, 8}, Parent: &parent, At: at})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "move", got["action"])
	assert.Equal(t, []any{float64(7), float64(8)}, got["nodeIds"])
	assert.Equal(t, float64(3), got["parent"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["at"])
}

func TestEncode_EmptyIDsAndRootParent(t *testing.T) {
	raw, err := Encode(Event{Action: "create"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"nodeIds":[]`)
	assert.NotContains(t, string(raw), `"parent"`)
}

func TestNoop(t *testing.T) {
	p := NewNoop()
	assert.NoError(t, p.Publish(context.Background(), Event{Action: "delete"}))
	assert.NoError(t, p.Close())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), Event{Action: "create", NodeIDs: []uint64{1}}))

	r.Err = errors.New("down")
	assert.EqualError(t, r.Publish(context.Background(), Event{Action: "update"}), "down")

	assert.Equal(t, []string{"create", "update"}, r.Actions())
	assert.Len(t, r.Events(), 2)
}

func TestNewRedis_RequiresAddr(t *testing.T) {
	_, err := NewRedis(logger.NewNop(), "  ", "chan")
	assert.EqualError(t, err, "missing REDIS_ADDR")

	_, err = NewRedis(nil, "localhost:6379", "chan")
	assert.EqualError(t, err, "logger required")
}
