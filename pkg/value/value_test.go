package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAnyToAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"loa":    24.0,
		"beam":   6.5,
		"name":   "demo hull",
		"locked": false,
		"tags":   []any{"a", "b"},
		"nested": map[string]any{"x": 1.0},
	}
	v, err := FromAny(in)
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	out := v.ToAny()
	assert.Equal(t, in, out)
}

func TestEqualRejectsCrossKindNumerics(t *testing.T) {
	assert.False(t, Equal(Int(1), Float(1.0)))
	assert.True(t, Equal(Int(1), Int(1)))
	assert.True(t, Equal(Float(1.5), Float(1.5)))
}

func TestMarshalUnmarshalJSON(t *testing.T) {
	v := Map(map[string]Value{
		"beam": Float(6.5),
		"loa":  Float(24),
	})
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var round Value
	require.NoError(t, json.Unmarshal(data, &round))
	assert.True(t, Equal(v, round))
}

func TestFromAnyRejectsUnsupportedType(t *testing.T) {
	_, err := FromAny(make(chan int))
	assert.Error(t, err)
}
