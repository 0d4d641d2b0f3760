// Package value defines MAGNET's tagged value type, the sum type every
// parameter in the design state is stored as at the store boundary.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSeq
	KindMap
)

// Value is a closed sum type: Null, Bool, Int, Float, String, Seq, Map.
// Exactly one field is meaningful, selected by Kind. Zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	m    map[string]Value
}

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Int(i int64) Value           { return Value{kind: KindInt, i: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, f: f} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func Seq(items []Value) Value     { return Value{kind: KindSeq, seq: items} }
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)           { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)           { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}
func (v Value) AsString() (string, bool)       { return v.s, v.kind == KindString }
func (v Value) AsSeq() ([]Value, bool)         { return v.seq, v.kind == KindSeq }
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Equal reports deep equality across all variants.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// numeric cross-kind equality is intentionally NOT supported:
		// Int(1) and Float(1.0) are distinct values.
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindSeq:
		if len(a.seq) != len(b.seq) {
			return false
		}
		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts an untyped Go value (as decoded from JSON/YAML) into a
// Value. Unsupported types return an error naming the Go type.
func FromAny(in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case string:
		return String(t), nil
	case []any:
		out := make([]Value, 0, len(t))
		for _, item := range t {
			cv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			out = append(out, cv)
		}
		return Seq(out), nil
	case []Value:
		return Seq(t), nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			cv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			out[k] = cv
		}
		return Map(out), nil
	case Value:
		return t, nil
	default:
		return Value{}, fmt.Errorf("value: unsupported Go type %T", in)
	}
}

// ToAny converts a Value back into plain Go data (map[string]any,
// []any, bool, int64, float64, string, or nil) suitable for json.Marshal.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSeq:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.ToAny()
		}
		return out
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cv, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = cv
	return nil
}

// SortedKeys returns a Map value's keys in ascending order. Returns nil for
// non-map values.
func (v Value) SortedKeys() []string {
	m, ok := v.AsMap()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
