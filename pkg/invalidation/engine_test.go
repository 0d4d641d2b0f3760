package invalidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/value"
)

func shipGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	table := depgraph.NewPhaseTable().
		OwnPrefix("hull.", depgraph.PhaseHullForm).
		OwnPrefix("stability.", depgraph.PhaseStability)
	g := depgraph.New(table)
	g.AddDependency("hull.displacement_m3", "hull.loa", depgraph.DataFlow, 1)
	g.AddDependency("stability.gm", "hull.displacement_m3", depgraph.DataFlow, 1)
	require.NoError(t, g.Build())
	return g
}

type fakeObserver struct {
	status    map[depgraph.Phase]PhaseStatus
	notified  []depgraph.Phase
}

func (f *fakeObserver) Status(phase depgraph.Phase) (PhaseStatus, bool) {
	s, ok := f.status[phase]
	return s, ok
}

func (f *fakeObserver) NotifySettledInvalidated(phase depgraph.Phase, _ Event) {
	f.notified = append(f.notified, phase)
}

func TestInvalidateParameterCascadesDownstream(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)

	evt := e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: true})

	assert.True(t, e.IsStale("hull.loa"))
	assert.True(t, e.IsStale("hull.displacement_m3"))
	assert.True(t, e.IsStale("stability.gm"))
	assert.Contains(t, evt.InvalidatedParameters, "stability.gm")
	assert.Equal(t, ScopeDownstream, evt.Scope)
}

func TestInvalidateParameterWithoutCascadeOnlyMarksItself(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)

	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: false})

	assert.True(t, e.IsStale("hull.loa"))
	assert.False(t, e.IsStale("hull.displacement_m3"))
}

func TestInvalidateParameterNotifiesSettledPhase(t *testing.T) {
	g := shipGraph(t)
	obs := &fakeObserver{status: map[depgraph.Phase]PhaseStatus{
		depgraph.PhaseStability: PhaseLocked,
	}}
	e := New(g, obs, 0)

	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: true})

	assert.Contains(t, obs.notified, depgraph.PhaseStability)
}

func TestInvalidatePhaseMarksAllOwnedParameters(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)

	e.InvalidatePhase(depgraph.PhaseHullForm, "")

	assert.True(t, e.IsPhaseStale(depgraph.PhaseHullForm))
	assert.True(t, e.IsStale("hull.loa"))
	assert.True(t, e.IsStale("hull.displacement_m3"))
}

func TestInvalidateAllMarksEveryParameter(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)

	e.InvalidateAll("")

	for _, p := range g.AllParameters() {
		assert.True(t, e.IsStale(p), p)
	}
}

func TestMarkValidClearsStaleFlag(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)
	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: false})
	require.True(t, e.IsStale("hull.loa"))

	e.MarkValid("hull.loa")
	assert.False(t, e.IsStale("hull.loa"))
}

func TestRingBufferRollsAtCapacity(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 2)

	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: false, Old: value.Float(1), New: value.Float(2)})
	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: false, Old: value.Float(2), New: value.Float(3)})
	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: false, Old: value.Float(3), New: value.Float(4)})

	hist := e.History()
	require.Len(t, hist, 2)
	got, _ := hist[0].OldValue.AsFloat()
	assert.Equal(t, float64(2), got)
}

func TestCallbacksInvokedOnEveryEvent(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)

	var seen []string
	e.OnEvent(func(evt Event) { seen = append(seen, evt.TriggerParameter) })

	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: false})
	e.InvalidateParameter("hull.beam", InvalidateOptions{Cascade: false})

	assert.Equal(t, []string{"hull.loa", "hull.beam"}, seen)
}

func TestStaleParametersForPhase(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)
	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: true})

	stale := e.StaleParametersForPhase(depgraph.PhaseStability)
	assert.Equal(t, []string{"stability.gm"}, stale)
}

func TestRecalculationOrderDelegatesToGraph(t *testing.T) {
	g := shipGraph(t)
	e := New(g, nil, 0)
	e.InvalidateParameter("hull.loa", InvalidateOptions{Cascade: false})

	order, err := e.RecalculationOrder()
	require.NoError(t, err)
	assert.Contains(t, order, "hull.loa")
	assert.Contains(t, order, "hull.displacement_m3")
	assert.Contains(t, order, "stability.gm")
}
