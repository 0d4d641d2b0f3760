// Package hulldesign provides the canonical example dependency graph and
// recompute functions used by cmd/magnetd and cmd/magnetctl: a minimal hull
// sizing model (LOA, beam, draft, block coefficient driving displacement)
// deep enough to exercise the full propose-validate-revise cycle end to end.
package hulldesign

import (
	"context"
	"fmt"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/formula"
	"github.com/magnet-design/magnet-core/pkg/state"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// displacementFormula is the block-coefficient volume approximation,
// evaluated at runtime rather than hardcoded as a Go expression so a
// deployment can retune it without a rebuild.
const displacementFormula = "loa * beam * draft * cb"

var evaluator = formula.NewEvaluator(16)

// Parameter paths for the example hull model.
const (
	LOA          = "hull.loa"
	Beam         = "hull.beam"
	Draft        = "hull.draft"
	BlockCoeff   = "hull.cb"
	Displacement = "hull.displacement_m3"
)

// BuildGraph constructs the dependency graph for the example hull model:
// displacement derives from LOA, beam, draft and block coefficient via the
// block-coefficient volume approximation (spec §8, scenario 1).
func BuildGraph() (*depgraph.Graph, error) {
	phases := depgraph.NewPhaseTable().OwnPrefix("hull.", depgraph.PhaseHullForm)
	g := depgraph.New(phases)
	g.AddParameter(LOA, depgraph.PhaseHullForm)
	g.AddParameter(Beam, depgraph.PhaseHullForm)
	g.AddParameter(Draft, depgraph.PhaseHullForm)
	g.AddParameter(BlockCoeff, depgraph.PhaseHullForm)
	g.AddParameter(Displacement, depgraph.PhaseHullForm)

	for _, source := range []string{LOA, Beam, Draft, BlockCoeff} {
		g.AddDependency(Displacement, source, depgraph.DataFlow, 1.0)
	}

	if err := g.Build(); err != nil {
		return nil, fmt.Errorf("failed to build hull dependency graph: %w", err)
	}
	return g, nil
}

// SeedDefaults populates store with the scenario-1 defaults from the
// specification's testable properties.
func SeedDefaults(store *state.Store) error {
	defaults := map[string]float64{
		LOA:        24,
		Beam:       6,
		Draft:      1.4,
		BlockCoeff: 0.38,
	}
	for path, v := range defaults {
		if err := store.Set(path, value.Float(v), "seed"); err != nil {
			return fmt.Errorf("failed to seed %s: %w", path, err)
		}
	}
	return Recompute(context.Background(), store, Displacement)
}

// Recompute implements pkg/cascade.RecomputeFunc for the example hull
// model. Only Displacement has a derivation; every other path is a leaf
// input and recomputing it is a no-op.
func Recompute(ctx context.Context, store *state.Store, path string) error {
	if path != Displacement {
		return nil
	}

	loa, _ := store.Get(LOA, value.Float(0)).AsFloat()
	beam, _ := store.Get(Beam, value.Float(0)).AsFloat()
	draft, _ := store.Get(Draft, value.Float(0)).AsFloat()
	cb, _ := store.Get(BlockCoeff, value.Float(0)).AsFloat()

	displacement, err := evaluator.Eval(displacementFormula, map[string]float64{
		"loa": loa, "beam": beam, "draft": draft, "cb": cb,
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate displacement formula: %w", err)
	}
	return store.Set(Displacement, value.Float(displacement), "cascade")
}
