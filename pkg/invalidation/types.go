// Package invalidation implements the stale-parameter/stale-phase tracker
// described in spec §4.3: a mutable stale set plus a bounded ring buffer of
// invalidation events, generalized from the teacher's ConditionCache
// fixed-capacity cache shape (pkg/engine/condition_cache.go) — here applied
// to an append-only event history instead of an LRU-evicted value cache.
package invalidation

import (
	"time"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// Reason enumerates why a parameter or phase was invalidated.
type Reason string

const (
	ReasonParameterChanged     Reason = "PARAMETER_CHANGED"
	ReasonManual               Reason = "MANUAL"
	ReasonPhaseUnlocked        Reason = "PHASE_UNLOCKED"
	ReasonDependencyInvalidated Reason = "DEPENDENCY_INVALIDATED"
	ReasonSchemaMigration      Reason = "SCHEMA_MIGRATION"
	ReasonCacheExpired         Reason = "CACHE_EXPIRED"
	ReasonValidationFailed     Reason = "VALIDATION_FAILED"
)

// Scope describes how far an invalidation event reached.
type Scope string

const (
	ScopeParameter  Scope = "PARAMETER"
	ScopePhase      Scope = "PHASE"
	ScopeDownstream Scope = "DOWNSTREAM"
	ScopeAll        Scope = "ALL"
)

// PhaseStatus is the subset of a phase's lifecycle status the invalidation
// engine cares about: whether it is "settled" and therefore needs an
// explicit unsettle notification when something upstream of it changes.
type PhaseStatus string

const (
	PhaseDraft     PhaseStatus = "DRAFT"
	PhaseInProgress PhaseStatus = "IN_PROGRESS"
	PhaseLocked    PhaseStatus = "LOCKED"
	PhaseApproved  PhaseStatus = "APPROVED"
	PhaseCompleted PhaseStatus = "COMPLETED"
)

// Settled reports whether status is one of the three statuses that require
// an explicit notification before they may be considered stale again.
func (s PhaseStatus) Settled() bool {
	return s == PhaseLocked || s == PhaseApproved || s == PhaseCompleted
}

// PhaseObserver is injected so pkg/invalidation never imports a concrete
// phase-lifecycle package, mirroring the teacher's pkg/engine -> observer
// split (pkg/engine/executor.go takes an observer.Manager interface, never
// a concrete implementation).
type PhaseObserver interface {
	// Status returns the current status of phase, and false if the phase
	// is unknown to the observer.
	Status(phase depgraph.Phase) (PhaseStatus, bool)
	// NotifySettledInvalidated is called when a settled phase is about to
	// be marked stale by a cascading invalidation.
	NotifySettledInvalidated(phase depgraph.Phase, event Event)
}

// Event is an immutable invalidation event. Once appended to the ring
// buffer, an Event is never mutated in place.
type Event struct {
	EventID             string
	Timestamp           time.Time
	TriggerParameter     string
	TriggerPhase         depgraph.Phase
	Reason               Reason
	Scope                Scope
	InvalidatedParameters []string
	InvalidatedPhases    []depgraph.Phase
	OldValue             value.Value
	NewValue             value.Value
	TriggeredBy          string
}
