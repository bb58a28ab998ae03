package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexID_NumberAndString(t *testing.T) {
	var body struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12, "b": "34"}`), &body))
	assert.Equal(t, uint64(12), body.A.Uint64())
	assert.Equal(t, uint64(34), body.B.Uint64())

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12,"b":34}`, string(out))
}

func TestFlexID_RejectsZeroAndGarbage(t *testing.T) {
	var id FlexID
	assert.Error(t, json.Unmarshal([]byte(`0`), &id))
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &id))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestIDList_Shapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []uint64
	}{
		{"array", `[1, "2", 3]`, []uint64{1, 2, 3}},
		{"single number", `7`, []uint64{7}},
		{"single string", `"8"`, []uint64{8}},
		{"comma separated", `"4, 5,,6"`, []uint64{4, 5, 6}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var l IDList
			require.NoError(t, json.Unmarshal([]byte(tc.in), &l))
			assert.Equal(t, tc.want, l.Uint64s())
		})
	}

	var l IDList
	require.NoError(t, json.Unmarshal([]byte(`null`), &l))
	assert.Empty(t, l)
}

func TestOptionalID_NullVersusMissing(t *testing.T) {
	var body struct {
		Parent OptionalID `json:"parent"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &body))
	assert.False(t, body.Parent.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"parent": null}`), &body))
	assert.True(t, body.Parent.Set)
	assert.Nil(t, body.Parent.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"parent": "9"}`), &body))
	require.NotNil(t, body.Parent.ID)
	assert.Equal(t, uint64(9), *body.Parent.ID)
}

func TestNodeError_Kinds(t *testing.T) {
	err := error(CycleError(1, 2))
	assert.True(t, errors.Is(err, ErrCycle))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "cycle", KindName(err))

	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, uint64(1), nodeErr.NodeID)

	assert.Equal(t, "version", KindName(VersionError(3, 1, 2)))
	assert.Equal(t, "notFound", KindName(NotFoundError(3, "missing")))
	assert.Equal(t, "conflict", KindName(ConflictError(3, DuplicateNameMessage)))
	assert.Equal(t, "validation", KindName(ValidationError("title is required")))
	assert.Equal(t, "unknown", KindName(errors.New("boom")))
}
