package formula

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Evaluator compiles and runs numeric derivation formulas against a
// variable environment, caching compiled programs by formula text so a
// recompute hot path doesn't re-parse the same formula on every call.
type Evaluator struct {
	cache *cache
}

// NewEvaluator creates an Evaluator with an LRU cache sized for capacity
// distinct formulas. A non-positive capacity defaults to 100.
func NewEvaluator(capacity int) *Evaluator {
	return &Evaluator{cache: newCache(capacity)}
}

// Eval compiles formula (caching the result) and runs it against vars,
// returning the result as a float64. formula must reduce to a number.
func (e *Evaluator) Eval(formula string, vars map[string]float64) (float64, error) {
	env := make(map[string]any, len(vars))
	for k, v := range vars {
		env[k] = v
	}

	program, ok := e.cache.get(formula)
	if !ok {
		compiled, err := expr.Compile(formula, expr.Env(env), expr.AsFloat64())
		if err != nil {
			return 0, fmt.Errorf("failed to compile formula %q: %w", formula, err)
		}
		program = compiled
		e.cache.put(formula, program)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate formula %q: %w", formula, err)
	}
	result, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("formula %q produced %T, expected float64", formula, out)
	}
	return result, nil
}

// CacheLen reports how many distinct formulas are currently compiled and
// cached. Exposed for tests and diagnostics.
func (e *Evaluator) CacheLen() int {
	return e.cache.Len()
}
