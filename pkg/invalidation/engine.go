package invalidation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// DefaultRingCapacity is the default size of the event history ring buffer.
const DefaultRingCapacity = 10000

// Callback is invoked synchronously, in registration order, every time an
// event is appended.
type Callback func(Event)

// Engine tracks which parameters and phases are currently stale and keeps a
// bounded history of the events that made them so.
type Engine struct {
	graph    *depgraph.Graph
	observer PhaseObserver

	mu            sync.Mutex
	staleParams   map[string]struct{}
	stalePhases   map[depgraph.Phase]struct{}
	ring          []Event
	ringCap       int
	ringNext      int
	ringLen       int
	callbacks     []Callback
}

// New constructs an Engine over graph. observer may be nil, in which case
// settled-phase notifications are skipped. capacity <= 0 uses
// DefaultRingCapacity.
func New(graph *depgraph.Graph, observer PhaseObserver, capacity int) *Engine {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Engine{
		graph:       graph,
		observer:    observer,
		staleParams: map[string]struct{}{},
		stalePhases: map[depgraph.Phase]struct{}{},
		ring:        make([]Event, capacity),
		ringCap:     capacity,
	}
}

// OnEvent registers a callback invoked for every appended event.
func (e *Engine) OnEvent(cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = append(e.callbacks, cb)
}

// append writes evt into the ring buffer, overwriting the oldest entry once
// full. Caller must hold e.mu.
func (e *Engine) append(evt Event) {
	e.ring[e.ringNext] = evt
	e.ringNext = (e.ringNext + 1) % e.ringCap
	if e.ringLen < e.ringCap {
		e.ringLen++
	}
}

// InvalidateOptions configures InvalidateParameter.
type InvalidateOptions struct {
	Cascade     bool
	Reason      Reason
	Old, New    value.Value
	TriggeredBy string
}

// InvalidateParameter marks path stale (and, if Cascade, every downstream
// parameter) and records an event. Settled downstream phases are notified
// before being implicitly unsettled by the caller's own lifecycle code —
// the engine itself never flips a phase's status.
func (e *Engine) InvalidateParameter(path string, opts InvalidateOptions) Event {
	if opts.Reason == "" {
		opts.Reason = ReasonParameterChanged
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	invalidated := []string{path}
	e.staleParams[path] = struct{}{}

	scope := ScopeParameter
	if opts.Cascade {
		scope = ScopeDownstream
		for _, d := range e.graph.AllDownstream(path) {
			e.staleParams[d] = struct{}{}
			invalidated = append(invalidated, d)
		}
	}

	phases := e.graph.DownstreamPhases(path)
	for _, ph := range phases {
		e.stalePhases[ph] = struct{}{}
	}

	evt := Event{
		EventID:               uuid.NewString(),
		Timestamp:             time.Now().UTC(),
		TriggerParameter:      path,
		Reason:                opts.Reason,
		Scope:                 scope,
		InvalidatedParameters: invalidated,
		InvalidatedPhases:     phases,
		OldValue:              opts.Old,
		NewValue:              opts.New,
		TriggeredBy:           opts.TriggeredBy,
	}
	e.append(evt)

	if e.observer != nil {
		for _, ph := range phases {
			if status, ok := e.observer.Status(ph); ok && status.Settled() {
				e.observer.NotifySettledInvalidated(ph, evt)
			}
		}
	}

	for _, cb := range e.callbacks {
		cb(evt)
	}
	return evt
}

// InvalidatePhase marks phase, and every parameter it owns, stale.
func (e *Engine) InvalidatePhase(phase depgraph.Phase, reason Reason) Event {
	if reason == "" {
		reason = ReasonPhaseUnlocked
	}

	params := e.graph.ParametersForPhase(phase)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stalePhases[phase] = struct{}{}
	for _, p := range params {
		e.staleParams[p] = struct{}{}
	}

	evt := Event{
		EventID:               uuid.NewString(),
		Timestamp:             time.Now().UTC(),
		TriggerPhase:          phase,
		Reason:                reason,
		Scope:                 ScopePhase,
		InvalidatedParameters: params,
		InvalidatedPhases:     []depgraph.Phase{phase},
	}
	e.append(evt)
	for _, cb := range e.callbacks {
		cb(evt)
	}
	return evt
}

// InvalidateAll marks every known parameter and phase stale.
func (e *Engine) InvalidateAll(reason Reason) Event {
	if reason == "" {
		reason = ReasonSchemaMigration
	}

	params := e.graph.AllParameters()

	e.mu.Lock()
	defer e.mu.Unlock()

	phaseSet := map[depgraph.Phase]struct{}{}
	for _, p := range params {
		e.staleParams[p] = struct{}{}
		if ph, ok := e.graph.PhaseOf(p); ok && ph != "" {
			phaseSet[ph] = struct{}{}
			e.stalePhases[ph] = struct{}{}
		}
	}
	phases := make([]depgraph.Phase, 0, len(phaseSet))
	for ph := range phaseSet {
		phases = append(phases, ph)
	}

	evt := Event{
		EventID:               uuid.NewString(),
		Timestamp:             time.Now().UTC(),
		Reason:                reason,
		Scope:                 ScopeAll,
		InvalidatedParameters: params,
		InvalidatedPhases:     phases,
	}
	e.append(evt)
	for _, cb := range e.callbacks {
		cb(evt)
	}
	return evt
}

// MarkValid clears path from the stale set.
func (e *Engine) MarkValid(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.staleParams, path)
}

// MarkPhaseValid clears phase from the stale set. It does not touch the
// individual parameters owned by phase.
func (e *Engine) MarkPhaseValid(phase depgraph.Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.stalePhases, phase)
}

// IsStale reports whether path is currently marked stale.
func (e *Engine) IsStale(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.staleParams[path]
	return ok
}

// IsPhaseStale reports whether phase is currently marked stale.
func (e *Engine) IsPhaseStale(phase depgraph.Phase) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.stalePhases[phase]
	return ok
}

// StaleParametersForPhase returns the currently-stale parameters owned by
// phase, in ascending order.
func (e *Engine) StaleParametersForPhase(phase depgraph.Phase) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0)
	for p := range e.staleParams {
		if ph, ok := e.graph.PhaseOf(p); ok && ph == phase {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// StaleParameters returns every currently-stale parameter path.
func (e *Engine) StaleParameters() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.staleParams))
	for p := range e.staleParams {
		out = append(out, p)
	}
	return out
}

// RecalculationOrder delegates to the graph's RecalculationOrder over the
// current stale-parameter set.
func (e *Engine) RecalculationOrder() ([]string, error) {
	e.mu.Lock()
	stale := make([]string, 0, len(e.staleParams))
	for p := range e.staleParams {
		stale = append(stale, p)
	}
	e.mu.Unlock()
	return e.graph.RecalculationOrder(stale)
}

// History returns the events currently held in the ring buffer, oldest
// first. Events are never mutated in place; this returns copies of the
// buffer slots, not live references.
func (e *Engine) History() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, 0, e.ringLen)
	start := e.ringNext - e.ringLen
	if start < 0 {
		start += e.ringCap
	}
	for i := 0; i < e.ringLen; i++ {
		out = append(out, e.ring[(start+i)%e.ringCap])
	}
	return out
}
