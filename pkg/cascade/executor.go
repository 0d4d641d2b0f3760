// Package cascade drives recomputation over the stale parameter set (spec
// §4.5): given the dependency graph and invalidation engine, it computes a
// recalculation order and walks it, invoking a caller-supplied recompute
// function per parameter. Structurally this is the teacher's
// DAGExecutor.executeWave continue-vs-abort logic
// (internal/application/engine/dag_executor.go), specialized from
// wave-parallel node execution to a single ordered walk, since MAGNET's
// stale set has no independent-wave structure worth exploiting here — the
// topological order already serializes everything that matters.
package cascade

import (
	"context"
	"time"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/invalidation"
)

// RecomputeFunc recomputes the value at path. Returning an error marks that
// parameter Failed in the Result.
type RecomputeFunc func(ctx context.Context, path string) error

// Options configures a Run.
type Options struct {
	// ContinueOnError controls what happens after a parameter's
	// RecomputeFunc fails. When false (the default), the walk aborts: every
	// parameter still pending in the recalculation order — not just those
	// downstream of the failure — is marked Skipped instead of recomputed.
	// When true, the failure is recorded in Result.Failed and the walk
	// continues, recomputing every remaining parameter as normal.
	ContinueOnError bool
}

// Result is the outcome of one cascade run.
type Result struct {
	Succeeded []string
	Failed    map[string]error
	Skipped   []string
	Durations map[string]time.Duration
}

// Executor recomputes the stale set in dependency order.
type Executor struct {
	Graph        *depgraph.Graph
	Invalidation *invalidation.Engine
}

// New constructs an Executor over graph and its invalidation engine.
func New(graph *depgraph.Graph, inv *invalidation.Engine) *Executor {
	return &Executor{Graph: graph, Invalidation: inv}
}

// Run recomputes every currently stale parameter, in dependency order,
// via recompute.
func (e *Executor) Run(ctx context.Context, recompute RecomputeFunc, opts Options) (Result, error) {
	order, err := e.Invalidation.RecalculationOrder()
	if err != nil {
		return Result{}, err
	}
	return e.walk(ctx, order, recompute, opts)
}

// RunSubset recomputes computation_order(subset) instead of the full stale
// set, for callers that already know which parameters need revisiting.
func (e *Executor) RunSubset(ctx context.Context, subset []string, recompute RecomputeFunc, opts Options) (Result, error) {
	order, err := e.Graph.ComputationOrder(subset)
	if err != nil {
		return Result{}, err
	}
	return e.walk(ctx, order, recompute, opts)
}

func (e *Executor) walk(ctx context.Context, order []string, recompute RecomputeFunc, opts Options) (Result, error) {
	res := Result{
		Failed:    map[string]error{},
		Durations: map[string]time.Duration{},
	}

	aborted := false
	for _, path := range order {
		if aborted {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		select {
		case <-ctx.Done():
			res.Skipped = append(res.Skipped, path)
			aborted = true
			continue
		default:
		}

		started := time.Now()
		err := recompute(ctx, path)
		res.Durations[path] = time.Since(started)

		if err != nil {
			res.Failed[path] = err
			if !opts.ContinueOnError {
				aborted = true
			}
			continue
		}
		res.Succeeded = append(res.Succeeded, path)
		e.Invalidation.MarkValid(path)
	}
	return res, nil
}
