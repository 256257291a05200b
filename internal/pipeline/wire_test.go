package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orcsync.io/hub/internal/registry"
)

func TestObjectID_UnmarshalForms(t *testing.T) {
	t.Parallel()

	var ch InboundChange
	require.NoError(t, json.Unmarshal([]byte(`{"object_id": 123}`), &ch))
	assert.Equal(t, "123", ch.ObjectID.String())

	require.NoError(t, json.Unmarshal([]byte(`{"object_id": "456"}`), &ch))
	assert.Equal(t, "456", ch.ObjectID.String())

	require.NoError(t, json.Unmarshal([]byte(`{"object_id": "3f1f6dd0-9f3c-4f6d-9be2-52f6c1a5b6a7"}`), &ch))
	assert.Equal(t, "3f1f6dd0-9f3c-4f6d-9be2-52f6c1a5b6a7", ch.ObjectID.String())

	err := json.Unmarshal([]byte(`{"object_id": true}`), &ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object_id must be a string or a number")
}

func TestValidateBatch_ValidChanges(t *testing.T) {
	t.Parallel()

	reg := registry.Default()
	perChange, ok := ValidateBatch(reg, []InboundChange{
		{
			EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10001",
			Model:       "drivers.Driver",
			Action:      "C",
			ObjectID:    "12",
			DataPayload: map[string]any{"first_name": "Abebe"},
		},
		{
			EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10002",
			Model:       "customs.Declaration",
			Action:      "D",
			ObjectID:    "3f1f6dd0-9f3c-4f6d-9be2-52f6c1a5b6a7",
			DataPayload: map[string]any{},
		},
	})

	assert.True(t, ok)
	require.Len(t, perChange, 2)
	assert.Empty(t, perChange[0])
	assert.Empty(t, perChange[1])
}

func TestValidateBatch_FieldMessages(t *testing.T) {
	t.Parallel()

	reg := registry.Default()
	perChange, ok := ValidateBatch(reg, []InboundChange{
		{}, // everything missing
		{
			EventUUID:   "not-a-uuid",
			Model:       "nope.Nope",
			Action:      "X",
			ObjectID:    "abc",
			DataPayload: map[string]any{},
		},
		{
			EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10003",
			Model:       "drivers.Driver",
			Action:      "U",
			ObjectID:    "not-an-int",
			DataPayload: map[string]any{},
		},
	})

	assert.False(t, ok)
	require.Len(t, perChange, 3)

	assert.Equal(t, []string{"This field is required."}, perChange[0]["event_uuid"])
	assert.Equal(t, []string{"This field is required."}, perChange[0]["model"])
	assert.Equal(t, []string{"This field is required."}, perChange[0]["object_id"])
	assert.Equal(t, []string{"This field is required."}, perChange[0]["data_payload"])

	assert.Equal(t, []string{"Must be a valid UUID."}, perChange[1]["event_uuid"])
	assert.Equal(t, []string{"Model 'nope.Nope' not found or is not allowed to be synchronized."}, perChange[1]["model"])
	assert.Equal(t, []string{`"X" is not a valid choice.`}, perChange[1]["action"])
	// No descriptor, so the key format cannot be checked.
	assert.NotContains(t, perChange[1], "object_id")

	require.Len(t, perChange[2]["object_id"], 1)
	assert.Contains(t, perChange[2]["object_id"][0], "not a valid integer key")
}

func TestValidateBatch_RestrictedRegistry(t *testing.T) {
	t.Parallel()

	reg, err := registry.New([]string{"stations.Station"})
	require.NoError(t, err)

	perChange, ok := ValidateBatch(reg, []InboundChange{
		{
			EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10004",
			Model:       "drivers.Driver",
			Action:      "C",
			ObjectID:    "1",
			DataPayload: map[string]any{},
		},
	})

	assert.False(t, ok)
	assert.Equal(t, []string{"Model 'drivers.Driver' not found or is not allowed to be synchronized."}, perChange[0]["model"])
}
