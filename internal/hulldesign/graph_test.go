package hulldesign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/pkg/state"
	"github.com/magnet-design/magnet-core/pkg/value"
)

func TestBuildGraphProducesAcyclicDependencies(t *testing.T) {
	g, err := BuildGraph()
	require.NoError(t, err)
	assert.True(t, g.Built())
	for _, source := range []string{LOA, Beam, Draft, BlockCoeff} {
		assert.Contains(t, g.DirectDependents(source), Displacement)
	}
}

func TestSeedDefaultsPopulatesDisplacement(t *testing.T) {
	store := state.New(nil)
	require.NoError(t, SeedDefaults(store))

	displacement, ok := store.Get(Displacement, value.Float(0)).AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 24*6*1.4*0.38, displacement, 1e-9)
}

func TestRecomputeIsNoopForNonDerivedPaths(t *testing.T) {
	store := state.New(nil)
	require.NoError(t, store.Set(LOA, value.Float(30), "test"))
	require.NoError(t, Recompute(context.Background(), store, LOA))
	_, ok := store.ToDict()[Displacement]
	assert.False(t, ok)
}

func TestRecomputeReflectsUpdatedInputs(t *testing.T) {
	store := state.New(nil)
	require.NoError(t, SeedDefaults(store))

	require.NoError(t, store.Set(Beam, value.Float(7), "test"))
	require.NoError(t, Recompute(context.Background(), store, Displacement))

	displacement, ok := store.Get(Displacement, value.Float(0)).AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 24*7*1.4*0.38, displacement, 1e-9)
}
