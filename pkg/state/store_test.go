package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/pkg/value"
)

type recordedSet struct {
	parameter string
	old, new  value.Value
	source    string
}

type fakeRecorder struct {
	sets []recordedSet
}

func (f *fakeRecorder) LogValueSet(parameter string, old, new value.Value, source string, _ map[string]value.Value) {
	f.sets = append(f.sets, recordedSet{parameter, old, new, source})
}

func TestGetReturnsDefaultForAbsentPath(t *testing.T) {
	s := New(nil)
	got := s.Get("hull.loa", value.Float(-1))
	assert.True(t, value.Equal(value.Float(-1), got))
}

func TestSetThenGetRoundTrips(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Set("hull.loa", value.Float(120.5), "hull/generator"))
	got := s.Get("hull.loa", value.Null())
	assert.True(t, value.Equal(value.Float(120.5), got))
}

func TestSetCreatesIntermediateMaps(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Set("mission.profile.speed_kn", value.Float(18), "mission/generator"))
	got := s.Get("mission.profile.speed_kn", value.Null())
	assert.True(t, value.Equal(value.Float(18), got))
}

func TestSetRejectsEmptySource(t *testing.T) {
	s := New(nil)
	err := s.Set("hull.loa", value.Float(1), "")
	require.Error(t, err)
}

func TestSetEmitsTriggerLogEntry(t *testing.T) {
	rec := &fakeRecorder{}
	s := New(rec)
	require.NoError(t, s.Set("hull.loa", value.Float(10), "hull/generator"))
	require.NoError(t, s.Set("hull.loa", value.Float(20), "hull/generator"))

	require.Len(t, rec.sets, 2)
	assert.True(t, rec.sets[0].old.IsNull())
	assert.True(t, value.Equal(value.Float(10), rec.sets[0].new))
	assert.True(t, value.Equal(value.Float(10), rec.sets[1].old))
	assert.True(t, value.Equal(value.Float(20), rec.sets[1].new))
}

func TestSnapshotRestoreRoundTrips(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Set("hull.loa", value.Float(100), "hull/generator"))
	snap := s.Snapshot()

	require.NoError(t, s.Set("hull.loa", value.Float(200), "hull/generator"))
	assert.True(t, value.Equal(value.Float(200), s.Get("hull.loa", value.Null())))

	s.Restore(snap)
	assert.True(t, value.Equal(value.Float(100), s.Get("hull.loa", value.Null())))
}

func TestToDictFromDictRoundTrips(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Set("hull.loa", value.Float(100.123456789), "hull/generator"))
	require.NoError(t, s.Set("hull.beam", value.Float(18), "hull/generator"))

	d := s.ToDict()

	s2 := New(nil)
	require.NoError(t, s2.FromDict(d))
	assert.True(t, value.Equal(value.Float(18), s2.Get("hull.beam", value.Null())))

	got, _ := s2.Get("hull.loa", value.Null()).AsFloat()
	assert.InDelta(t, 100.123457, got, 1e-9)
}

func TestToDictIsDeterministicAcrossCalls(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Set("hull.loa", value.Float(100), "hull/generator"))
	require.NoError(t, s.Set("hull.beam", value.Float(18), "hull/generator"))

	first := s.ToDict()
	second := s.ToDict()
	assert.Equal(t, first, second)
}
