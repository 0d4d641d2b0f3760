// Package runtime is the composition root: it wires the config, logging,
// persistence, cache and observability layers to the domain engine in
// pkg/state, pkg/depgraph, pkg/invalidation, pkg/cascade, pkg/scheduler,
// pkg/triggerlog and pkg/protocol, the way internal/application/engine
// wires the teacher's DAGExecutor to its observer and storage layers.
package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/magnet-design/magnet-core/internal/cache"
	"github.com/magnet-design/magnet-core/internal/config"
	"github.com/magnet-design/magnet-core/internal/hulldesign"
	"github.com/magnet-design/magnet-core/internal/logging"
	"github.com/magnet-design/magnet-core/internal/observability"
	"github.com/magnet-design/magnet-core/internal/persistence"
	"github.com/magnet-design/magnet-core/pkg/cascade"
	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/invalidation"
	"github.com/magnet-design/magnet-core/pkg/protocol"
	"github.com/magnet-design/magnet-core/pkg/scheduler"
	"github.com/magnet-design/magnet-core/pkg/state"
	"github.com/magnet-design/magnet-core/pkg/triggerlog"
)

// Runtime bundles one fully-wired instance of the design engine plus the
// ambient services (logging, optional persistence, optional cache,
// optional tracing) a host process needs around it.
type Runtime struct {
	Config    *config.Config
	Logger    *logging.Logger
	Tracer    *observability.Provider
	Cache     *cache.GraphOrderCache
	Snapshots persistence.SnapshotRepository
	Triggers  persistence.TriggerLogRepository

	Graph        *depgraph.Graph
	Store        *state.Store
	TxManager    *state.TxManager
	Invalidation *invalidation.Engine
	Cascade      *cascade.Executor
	Scheduler    *scheduler.Scheduler
	TriggerLog   *triggerlog.Log
	Cycles       *protocol.CycleExecutor

	redisClient *cache.Client
	db          io.Closer
}

// New wires a Runtime from cfg. validator/decider drive every propose-
// validate-revise cycle; pass nil decider to use protocol's auto-decision
// policy. Redis and PostgreSQL are both optional — their absence (or a
// connection failure) only narrows functionality, per their fail-open
// designs in internal/cache and internal/persistence.
func New(ctx context.Context, cfg *config.Config, validator protocol.ValidatorFn, decider protocol.DeciderFn) (*Runtime, error) {
	logger := logging.New(cfg.Logging)
	logging.SetDefault(logger)

	tracerCfg := observability.Config{Enabled: cfg.Tracing.Enabled, ServiceName: cfg.Tracing.ServiceName, SampleRate: cfg.Tracing.SampleRate}
	tracer := observability.NewProvider(tracerCfg)

	graph, err := hulldesign.BuildGraph()
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	triggerLog := triggerlog.New(cfg.Invalidation.TriggerLogTTL)
	store := state.New(triggerLog)
	txManager := state.NewTxManager(store)
	invEngine := invalidation.New(graph, nil, cfg.Invalidation.RingCapacity)
	cascadeExec := cascade.New(graph, invEngine)
	sched := scheduler.New()

	cycleCfg := protocol.Config{
		MaxIterations:   cfg.Cycle.MaxIterations,
		TimeoutSeconds:  int(cfg.Cycle.TimeoutSeconds),
		UseTransactions: cfg.Cycle.UseTransactions,
		AutoCommit:      cfg.Cycle.AutoCommit,
	}
	cycles := protocol.NewCycleExecutor(store, txManager, validator, decider, cycleCfg)

	rt := &Runtime{
		Config:       cfg,
		Logger:       logger,
		Tracer:       tracer,
		Graph:        graph,
		Store:        store,
		TxManager:    txManager,
		Invalidation: invEngine,
		Cascade:      cascadeExec,
		Scheduler:    sched,
		TriggerLog:   triggerLog,
		Cycles:       cycles,
		Snapshots:    persistence.NopSnapshotRepository{},
		Triggers:     persistence.NopTriggerLogRepository{},
	}

	if err := rt.wireRedis(cfg.Redis); err != nil {
		logger.WarnContext(ctx, "continuing without Redis cache", "error", err)
	}
	if err := rt.wirePostgres(ctx, cfg.Database); err != nil {
		logger.WarnContext(ctx, "continuing without durable persistence", "error", err)
	}

	// Forward every trigger-log entry to durable storage (a Nop no-op when
	// no database is configured), and give the cycle executor the real
	// snapshot repository now that wirePostgres has set it.
	triggerLog.SetSink(func(e triggerlog.Entry) {
		if err := rt.Triggers.Append(ctx, e); err != nil {
			logger.WarnContext(ctx, "failed to persist trigger log entry", "error", err, "entry_id", e.EntryID)
		}
	})
	cycles.SetSnapshotSaver(rt.Snapshots)

	if err := hulldesign.SeedDefaults(store); err != nil {
		return nil, fmt.Errorf("failed to seed default design state: %w", err)
	}

	return rt, nil
}

func (rt *Runtime) wireRedis(cfg config.RedisConfig) error {
	client, err := cache.NewClient(cfg)
	if err != nil {
		return err
	}
	rt.redisClient = client
	rt.Cache = cache.NewGraphOrderCache(client, cfg.GraphOrderCacheTTL)
	return nil
}

func (rt *Runtime) wirePostgres(ctx context.Context, cfg config.DatabaseConfig) error {
	db, err := persistence.Open(cfg)
	if err != nil {
		return err
	}
	if err := persistence.CreateSchema(db); err != nil {
		_ = db.Close()
		return err
	}
	rt.db = db
	rt.Snapshots = persistence.NewBunSnapshotRepository(db)
	rt.Triggers = persistence.NewBunTriggerLogRepository(db)
	return nil
}

// AlwaysApprove is the default protocol.ValidatorFn for deployments that
// haven't wired in a domain-specific ruleset yet: every proposal passes.
// The example hull sizing model in internal/hulldesign has no validation
// rules of its own — a real deployment supplies its own ValidatorFn.
func AlwaysApprove(ctx context.Context, req protocol.ValidationRequest) (protocol.ValidationResult, error) {
	return protocol.ValidationResult{Passed: true}, nil
}

// RecomputeDownstream runs the cascade executor over the example hull
// model's single derivation (internal/hulldesign.Recompute), recording a span
// per parameter when tracing is enabled.
func (rt *Runtime) RecomputeDownstream(ctx context.Context, changed []string) (cascade.Result, error) {
	return rt.Cascade.RunSubset(ctx, changed, func(ctx context.Context, path string) error {
		spanCtx, span := observability.StartRecompute(ctx, rt.Tracer, path)
		defer span.End()
		return hulldesign.Recompute(spanCtx, rt.Store, path)
	}, cascade.Options{})
}

// Close releases the optional Redis and PostgreSQL connections and shuts
// down the tracer provider. Safe to call even when neither was wired.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.redisClient != nil {
		_ = rt.redisClient.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
	return rt.Tracer.Shutdown(ctx)
}
