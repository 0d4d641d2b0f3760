package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	p := NewProvider(Config{Enabled: false})
	assert.Nil(t, p)
}

func TestNewProvider_EnabledReturnsUsableTracer(t *testing.T) {
	p := NewProvider(Config{Enabled: true, ServiceName: "test", SampleRate: 1.0})
	require.NotNil(t, p)
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_NilProviderIsSafe(t *testing.T) {
	var p *Provider
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStartCycleIterationAndRecompute(t *testing.T) {
	p := NewProvider(Config{Enabled: true, SampleRate: 1.0})
	ctx, span := StartCycleIteration(context.Background(), p, "p1", 2)
	require.NotNil(t, span)
	span.End()

	ctx, span = StartRecompute(ctx, p, "hull.loa")
	require.NotNil(t, span)
	span.End()
}

func TestStartCycleIteration_NilProviderReturnsNoopSpan(t *testing.T) {
	_, span := StartCycleIteration(context.Background(), nil, "p1", 1)
	assert.False(t, span.IsRecording())
	span.End()
}

func TestRecordError_NoopWhenNotRecording(t *testing.T) {
	RecordError(context.Background(), errors.New("boom"))
}
