// Package observability provides OpenTelemetry span instrumentation for
// the cycle executor and cascade executor. Pure observability — nothing
// in pkg/protocol or pkg/cascade depends on a tracer being configured, and
// a disabled Provider returns a no-op tracer transparently.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls whether tracing is active and how spans are sampled.
type Config struct {
	Enabled     bool
	ServiceName string
	SampleRate  float64
}

// Provider owns the TracerProvider lifecycle. A nil *Provider (or one
// built with Enabled: false) hands out a no-op tracer, so callers never
// need to branch on whether tracing is configured.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds a Provider. It returns nil when tracing is disabled
// (a nil *Provider hands out a no-op tracer), matching the teacher's
// "tracing is an optional sidecar" posture.
func NewProvider(cfg Config) *Provider {
	if !cfg.Enabled {
		return nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "magnet-core"
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate > 0 && cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	} else if cfg.SampleRate <= 0 {
		sampler = sdktrace.NeverSample()
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, tracer: tp.Tracer(serviceName)}
}

// Tracer returns the provider's tracer, or a no-op tracer if p is nil.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// Shutdown flushes and stops the tracer provider. Safe to call on a nil
// Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// StartCycleIteration starts a span around one propose-validate-revise
// iteration, attributed with the identifiers that tie it back to the
// cycle executor's history (pkg/protocol.IterationRecord).
func StartCycleIteration(ctx context.Context, p *Provider, proposalID string, iteration int) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, "cycle.iteration", trace.WithAttributes(
		attribute.String("magnet.proposal_id", proposalID),
		attribute.Int("magnet.iteration", iteration),
	))
}

// StartRecompute starts a span around one cascade-executor parameter
// recompute.
func StartRecompute(ctx context.Context, p *Provider, path string) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, "cascade.recompute", trace.WithAttributes(
		attribute.String("magnet.parameter_path", path),
	))
}

// RecordError records err on the span active in ctx, if any and if it is
// recording.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
	}
}
