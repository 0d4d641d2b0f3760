package value

import (
	"math"
	"sort"
	"time"
)

// DefaultFloatPrecision is the number of decimal places floats are rounded
// to during determinization, matching spec.md's canonical-dictionary format.
const DefaultFloatPrecision = 6

// Determinize produces a canonical, byte-stable representation of an
// untyped Go value: map keys sorted ascending, floats rounded to precision
// decimal places, time.Time stringified as RFC3339 UTC. Two calls over
// semantically identical inputs must marshal to identical JSON bytes.
func Determinize(in any, precision int) any {
	if precision <= 0 {
		precision = DefaultFloatPrecision
	}
	return determinize(in, precision)
}

func determinize(in any, precision int) any {
	switch t := in.(type) {
	case nil:
		return nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case float64:
		return roundFloat(t, precision)
	case float32:
		return roundFloat(float64(t), precision)
	case map[string]any:
		return determinizeMap(t, precision)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = determinize(item, precision)
		}
		return out
	case Value:
		return determinize(t.ToAny(), precision)
	default:
		return t
	}
}

// determinizeMap returns a new map with every value determinized. The map
// itself has no stable iteration order; byte-stable output relies on
// encoding/json sorting map[string]any keys alphabetically on marshal.
func determinizeMap(m map[string]any, precision int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = determinize(v, precision)
	}
	return out
}

// SortedKeysOf returns the keys of a map[string]any in ascending order.
func SortedKeysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func roundFloat(f float64, precision int) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	mult := math.Pow(10, float64(precision))
	return math.Round(f*mult) / mult
}
