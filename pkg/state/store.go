// Package state implements the hierarchical state store (spec §4.1) and the
// single-writer transaction manager (§4.7) layered on top of it. The store
// mirrors the teacher's mutex-guarded map pattern in pkg/engine/state.go,
// generalized from a flat node-keyed map to a nested map addressed by
// dotted parameter paths.
package state

import (
	"strings"
	"sync"

	magerrors "github.com/magnet-design/magnet-core/pkg/errors"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// TriggerRecorder is the subset of pkg/triggerlog.Log the store needs. It is
// injected rather than imported so pkg/state has no dependency on
// pkg/triggerlog, the same split the teacher draws between pkg/engine and
// its observer.Manager interface.
type TriggerRecorder interface {
	LogValueSet(parameter string, old, new value.Value, source string, metadata map[string]value.Value)
}

// noopRecorder is used when a Store is built without a recorder.
type noopRecorder struct{}

func (noopRecorder) LogValueSet(string, value.Value, value.Value, string, map[string]value.Value) {}

// Store is a hierarchical key-value store addressed by dotted paths
// ("hull.loa"). All exported methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	root     map[string]any
	recorder TriggerRecorder
}

// New constructs an empty Store. recorder may be nil, in which case writes
// are not logged anywhere (useful for tests and for Snapshot/Restore copies
// that should not re-emit trigger log entries).
func New(recorder TriggerRecorder) *Store {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Store{root: make(map[string]any), recorder: recorder}
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// Get resolves path by splitting on "." and walking nested maps. Absent
// leaves, or a path that traverses a non-map intermediate, return def.
func (s *Store) Get(path string, def value.Value) value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segs := splitPath(path)
	var cur any = s.root
	for i, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		next, ok := m[seg]
		if !ok {
			return def
		}
		if i == len(segs)-1 {
			v, ok := next.(value.Value)
			if !ok {
				return def
			}
			return v
		}
		cur = next
	}
	return def
}

// Set writes value at path, creating intermediate maps as needed, and
// records the change with the trigger recorder. source identifies the
// caller and must be non-empty.
func (s *Store) Set(path string, v value.Value, source string) error {
	if source == "" {
		return magerrors.Wrap(magerrors.KindState, "SOURCE_MISSING",
			"set called with an empty source tag", "pass a non-empty source identifying the caller",
			magerrors.ErrSourceMissing)
	}

	s.mu.Lock()
	old, hadOld := s.getLocked(path)
	segs := splitPath(path)
	m := s.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg]
		if !ok {
			nm := make(map[string]any)
			m[seg] = nm
			m = nm
			continue
		}
		nm, ok := next.(map[string]any)
		if !ok {
			nm = make(map[string]any)
			m[seg] = nm
		}
		m = nm
	}
	m[segs[len(segs)-1]] = v
	s.mu.Unlock()

	var oldVal value.Value
	if hadOld {
		oldVal = old
	} else {
		oldVal = value.Null()
	}
	s.recorder.LogValueSet(path, oldVal, v, source, nil)
	return nil
}

// getLocked resolves path under an already-held lock, reporting whether a
// value was present.
func (s *Store) getLocked(path string) (value.Value, bool) {
	segs := splitPath(path)
	var cur any = s.root
	for i, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return value.Value{}, false
		}
		next, ok := m[seg]
		if !ok {
			return value.Value{}, false
		}
		if i == len(segs)-1 {
			v, ok := next.(value.Value)
			return v, ok
		}
		cur = next
	}
	return value.Value{}, false
}

// ToDict renders the store as a canonical, deterministic nested map,
// delegating to pkg/value's determinization pass (§4.6) so repeated calls
// against identical state are byte-identical once marshaled.
func (s *Store) ToDict() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return value.Determinize(deepCopyAny(s.root), 0).(map[string]any)
}

// FromDict replaces the store's contents with d, converting plain Go
// values (as produced by encoding/json.Unmarshal or ToDict) back into
// value.Value leaves.
func (s *Store) FromDict(d map[string]any) error {
	converted, err := convertDict(d)
	if err != nil {
		return magerrors.Wrap(magerrors.KindState, "FROM_DICT_FAILED",
			"could not reconstruct state store from dict", "check the dict was produced by ToDict", err)
	}
	s.mu.Lock()
	s.root = converted
	s.mu.Unlock()
	return nil
}

func convertDict(d map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(d))
	for k, v := range d {
		switch tv := v.(type) {
		case map[string]any:
			sub, err := convertDict(tv)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		case value.Value:
			out[k] = tv
		default:
			vv, err := value.FromAny(tv)
			if err != nil {
				return nil, err
			}
			out[k] = vv
		}
	}
	return out, nil
}

// Snapshot is an opaque deep-copy handle produced by Store.Snapshot and
// consumed by Store.Restore or the transaction manager.
type Snapshot struct {
	root map[string]any
}

// ToDict renders the snapshot as a deterministic nested map, for callers
// (e.g. internal/persistence) that need to serialize a snapshot for
// durable storage without reaching into its unexported fields.
func (s Snapshot) ToDict() map[string]any {
	if s.root == nil {
		return map[string]any{}
	}
	return value.Determinize(deepCopyAny(s.root), 0).(map[string]any)
}

// SnapshotFromDict reconstructs a Snapshot from a dict previously produced
// by Snapshot.ToDict, for restoring a persisted snapshot back into a
// TxManager-managed Store.
func SnapshotFromDict(d map[string]any) (Snapshot, error) {
	converted, err := convertDict(d)
	if err != nil {
		return Snapshot{}, magerrors.Wrap(magerrors.KindState, "SNAPSHOT_FROM_DICT_FAILED",
			"could not reconstruct snapshot from dict", "check the dict was produced by Snapshot.ToDict", err)
	}
	return Snapshot{root: converted}, nil
}

// Snapshot takes a deep copy of the store's current contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{root: deepCopyAny(s.root).(map[string]any)}
}

// Restore replaces the store's contents with a previously taken snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = deepCopyAny(snap.root).(map[string]any)
}

func deepCopyAny(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[k] = deepCopyAny(val)
		}
		return out
	default:
		return v
	}
}
