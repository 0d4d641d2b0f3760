// Package triggerlog implements the append-only audit trail of state
// writes, invalidations, phase transitions, and validation runs (spec
// §4.6). Entries are pruned by age rather than count, the teacher's
// retry/backoff timing style (pkg/engine/retry_policy.go's deadline-based
// loop) applied to eviction instead of retries.
package triggerlog

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// TriggerType classifies a log entry.
type TriggerType string

const (
	TriggerValueSet        TriggerType = "VALUE_SET"
	TriggerInvalidation    TriggerType = "INVALIDATION"
	TriggerPhaseTransition TriggerType = "PHASE_TRANSITION"
	TriggerValidationRun   TriggerType = "VALIDATION_RUN"
)

// Entry is one append-only record. Fields not relevant to TriggerType are
// left at their zero value (e.g. Parameter is empty on a PHASE_TRANSITION).
type Entry struct {
	EntryID     string         `json:"entry_id"`
	Timestamp   time.Time      `json:"timestamp"`
	TriggerType TriggerType    `json:"trigger_type"`
	Parameter   string         `json:"parameter,omitempty"`
	Phase       depgraph.Phase `json:"phase,omitempty"`
	OldValue    *value.Value   `json:"old_value,omitempty"`
	NewValue    *value.Value   `json:"new_value,omitempty"`
	Source      string         `json:"source"`
	Metadata    map[string]value.Value `json:"metadata,omitempty"`
}

// Log is an append-only, time-bounded trigger log.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	ttl     time.Duration
	sink    func(Entry)
}

// DefaultTTL is the entry lifetime used when New is called with ttl <= 0.
const DefaultTTL = 24 * time.Hour

// New constructs an empty Log. Entries older than ttl are pruned on every
// append; ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Log {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Log{ttl: ttl}
}

func (l *Log) prune(now time.Time) {
	cutoff := now.Add(-l.ttl)
	i := 0
	for i < len(l.entries) && l.entries[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		l.entries = l.entries[i:]
	}
}

// SetSink registers fn to be called with every entry appended from this
// point on, in addition to the in-memory retention above. Used to forward
// entries to durable storage without this package depending on it. A nil
// fn (the default) disables forwarding.
func (l *Log) SetSink(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = fn
}

func (l *Log) append(e Entry) {
	l.mu.Lock()
	l.prune(e.Timestamp)
	l.entries = append(l.entries, e)
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(e)
	}
}

// LogValueSet records a VALUE_SET entry. It satisfies pkg/state's
// TriggerRecorder interface.
func (l *Log) LogValueSet(parameter string, old, new value.Value, source string, metadata map[string]value.Value) {
	l.append(Entry{
		EntryID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		TriggerType: TriggerValueSet,
		Parameter:   parameter,
		OldValue:    &old,
		NewValue:    &new,
		Source:      source,
		Metadata:    metadata,
	})
}

// LogInvalidation records an INVALIDATION entry.
func (l *Log) LogInvalidation(parameter, source string, metadata map[string]value.Value) {
	l.append(Entry{
		EntryID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		TriggerType: TriggerInvalidation,
		Parameter:   parameter,
		Source:      source,
		Metadata:    metadata,
	})
}

// LogPhaseTransition records a PHASE_TRANSITION entry. fromState/toState
// are carried in Metadata since Entry has no dedicated fields for them.
func (l *Log) LogPhaseTransition(phase depgraph.Phase, fromState, toState string) {
	l.append(Entry{
		EntryID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		TriggerType: TriggerPhaseTransition,
		Phase:       phase,
		Source:      "phase_lifecycle",
		Metadata: map[string]value.Value{
			"from_state": value.String(fromState),
			"to_state":   value.String(toState),
		},
	})
}

// LogValidationRun records a VALIDATION_RUN entry.
func (l *Log) LogValidationRun(validatorID string, passed bool, errorCount, warningCount int) {
	l.append(Entry{
		EntryID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		TriggerType: TriggerValidationRun,
		Source:      validatorID,
		Metadata: map[string]value.Value{
			"passed":        value.Bool(passed),
			"error_count":   value.Int(int64(errorCount)),
			"warning_count": value.Int(int64(warningCount)),
		},
	})
}

// Filter narrows Query's results. Zero-value fields are not applied.
type Filter struct {
	Since      time.Time
	Until      time.Time
	Parameters map[string]struct{}
	Phases     map[depgraph.Phase]struct{}
	Types      map[TriggerType]struct{}
}

// Query returns entries matching f, oldest first.
func (l *Log) Query(f Filter) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		if len(f.Parameters) > 0 {
			if _, ok := f.Parameters[e.Parameter]; !ok {
				continue
			}
		}
		if len(f.Phases) > 0 {
			if _, ok := f.Phases[e.Phase]; !ok {
				continue
			}
		}
		if len(f.Types) > 0 {
			if _, ok := f.Types[e.TriggerType]; !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// ExportJSON writes every retained entry as a deterministic JSON array:
// map keys sorted, floats rounded to pkg/value's default precision, so two
// runs over identical semantic input produce byte-identical output.
func (l *Log) ExportJSON(w io.Writer) error {
	l.mu.Lock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })

	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	var asAny []any
	if err := json.Unmarshal(raw, &asAny); err != nil {
		return err
	}
	determinized := value.Determinize(asAny, 0)

	enc := json.NewEncoder(w)
	return enc.Encode(determinized)
}

// Len returns the number of entries currently retained.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
