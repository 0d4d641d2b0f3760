package triggerlog

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/value"
)

func TestLogValueSetAppendsEntry(t *testing.T) {
	l := New(0)
	l.LogValueSet("hull.loa", value.Null(), value.Float(100), "hull/generator", nil)

	entries := l.Query(Filter{})
	require.Len(t, entries, 1)
	assert.Equal(t, TriggerValueSet, entries[0].TriggerType)
	assert.Equal(t, "hull.loa", entries[0].Parameter)
}

func TestQueryFiltersByParameter(t *testing.T) {
	l := New(0)
	l.LogValueSet("hull.loa", value.Null(), value.Float(1), "a", nil)
	l.LogValueSet("hull.beam", value.Null(), value.Float(2), "a", nil)

	entries := l.Query(Filter{Parameters: map[string]struct{}{"hull.beam": {}}})
	require.Len(t, entries, 1)
	assert.Equal(t, "hull.beam", entries[0].Parameter)
}

func TestQueryFiltersByTriggerType(t *testing.T) {
	l := New(0)
	l.LogValueSet("hull.loa", value.Null(), value.Float(1), "a", nil)
	l.LogPhaseTransition(depgraph.PhaseHullForm, "DRAFT", "LOCKED")

	entries := l.Query(Filter{Types: map[TriggerType]struct{}{TriggerPhaseTransition: {}}})
	require.Len(t, entries, 1)
	assert.Equal(t, TriggerPhaseTransition, entries[0].TriggerType)
}

func TestOldEntriesArePrunedByTTL(t *testing.T) {
	l := New(time.Millisecond)
	l.LogValueSet("hull.loa", value.Null(), value.Float(1), "a", nil)
	time.Sleep(5 * time.Millisecond)
	l.LogValueSet("hull.beam", value.Null(), value.Float(2), "a", nil)

	entries := l.Query(Filter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "hull.beam", entries[0].Parameter)
}

func TestExportJSONIsByteStableAcrossCalls(t *testing.T) {
	l := New(0)
	l.LogValueSet("hull.loa", value.Null(), value.Float(100.123456789), "hull/generator", nil)
	l.LogValidationRun("hull/validator", true, 0, 1)

	var buf1, buf2 bytes.Buffer
	require.NoError(t, l.ExportJSON(&buf1))
	require.NoError(t, l.ExportJSON(&buf2))

	assert.Equal(t, buf1.Bytes(), buf2.Bytes())
}

func TestLenReportsRetainedEntryCount(t *testing.T) {
	l := New(0)
	assert.Equal(t, 0, l.Len())
	l.LogValueSet("hull.loa", value.Null(), value.Float(1), "a", nil)
	assert.Equal(t, 1, l.Len())
}

func TestSetSinkForwardsEveryAppendedEntry(t *testing.T) {
	l := New(0)
	var forwarded []Entry
	l.SetSink(func(e Entry) { forwarded = append(forwarded, e) })

	l.LogValueSet("hull.loa", value.Null(), value.Float(1), "a", nil)
	l.LogPhaseTransition(depgraph.PhaseHullForm, "DRAFT", "LOCKED")

	require.Len(t, forwarded, 2)
	assert.Equal(t, TriggerValueSet, forwarded[0].TriggerType)
	assert.Equal(t, TriggerPhaseTransition, forwarded[1].TriggerType)
}

func TestNilSinkDoesNotPanic(t *testing.T) {
	l := New(0)
	assert.NotPanics(t, func() {
		l.LogValueSet("hull.loa", value.Null(), value.Float(1), "a", nil)
	})
}
