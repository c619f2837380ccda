package tryfi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapGet(t *testing.T) {
	m := map[string]any{
		"data": map[string]any{
			"pet": map[string]any{
				"id":    "p1",
				"steps": []any{1.0, 2.0},
			},
		},
	}

	id, ok := mapGet[string](m, "data", "pet", "id")
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	steps, ok := mapGet[[]any](m, "data", "pet", "steps")
	require.True(t, ok)
	assert.Len(t, steps, 2)

	_, ok = mapGet[string](m, "data", "pet", "missing")
	assert.False(t, ok)

	_, ok = mapGet[string](m, "data", "missing", "id")
	assert.False(t, ok)

	// type mismatch on the final value
	_, ok = mapGet[int](m, "data", "pet", "id")
	assert.False(t, ok)
}

func TestDecodePayloadWeakTyping(t *testing.T) {
	// JSON numbers arrive as float64; weigh stays a float, counters become ints
	in := map[string]any{
		"totalSteps":    1200.0,
		"stepGoal":      "7000",
		"totalDistance": 950.5,
	}
	var out activitySummaryPayload
	require.NoError(t, decodePayload(in, &out))
	assert.Equal(t, 1200, out.TotalSteps)
	assert.Equal(t, 7000, out.StepGoal)
	assert.Equal(t, 950.5, out.TotalDistance)
}

func TestParseAPITime(t *testing.T) {
	got, err := parseAPITime("2025-08-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = parseAPITime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseAPITime("yesterday")
	require.Error(t, err)
}

func TestLooseJSONMap(t *testing.T) {
	m, ok := looseJSONMap(map[string]any{"a": 1})
	require.True(t, ok)
	assert.Equal(t, 1, m["a"])

	m, ok = looseJSONMap(`{"a":1}`)
	require.True(t, ok)
	assert.Equal(t, 1.0, m["a"])

	_, ok = looseJSONMap(`not json`)
	assert.False(t, ok)

	_, ok = looseJSONMap(42)
	assert.False(t, ok)
}
