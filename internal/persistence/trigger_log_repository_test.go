package persistence

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
	"github.com/magnet-design/magnet-core/pkg/triggerlog"
	"github.com/magnet-design/magnet-core/pkg/value"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return bun.NewDB(sqldb, pgdialect.New()), mock
}

func TestNopTriggerLogRepositoryDiscardsEntries(t *testing.T) {
	repo := NopTriggerLogRepository{}
	err := repo.Append(t.Context(), triggerlog.Entry{EntryID: "e1"})
	assert.NoError(t, err)
}

func TestBunTriggerLogRepositoryAppendInsertsRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBunTriggerLogRepository(db)

	oldVal := value.Float(10.5)
	newVal := value.Float(12.0)
	entry := triggerlog.Entry{
		EntryID:     "entry-1",
		Timestamp:   time.Now().UTC(),
		TriggerType: triggerlog.TriggerValueSet,
		Parameter:   "loa",
		Phase:       depgraph.PhaseHullForm,
		OldValue:    &oldVal,
		NewValue:    &newVal,
		Source:      "designer",
	}

	mock.ExpectExec(`INSERT INTO "magnet_trigger_log"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(t.Context(), entry)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBunTriggerLogRepositoryAppendPropagatesError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBunTriggerLogRepository(db)

	mock.ExpectExec(`INSERT INTO "magnet_trigger_log"`).
		WillReturnError(assert.AnError)

	err := repo.Append(t.Context(), triggerlog.Entry{EntryID: "entry-2", Source: "designer"})
	require.Error(t, err)
}

func TestBunTriggerLogRepositoryQueryReturnsEntries(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBunTriggerLogRepository(db)

	ts := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{
		"id", "entry_id", "timestamp", "trigger_type", "parameter", "phase",
		"old_value", "new_value", "source", "metadata", "created_at",
	}).AddRow(
		"00000000-0000-0000-0000-000000000001", "entry-1", ts, "VALUE_SET", "loa", "hull_form",
		nil, nil, "designer", nil, ts,
	)
	mock.ExpectQuery(`SELECT (.+) FROM "magnet_trigger_log"`).WillReturnRows(rows)

	entries, err := repo.Query(t.Context(), "", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "entry-1", entries[0].EntryID)
	assert.Equal(t, triggerlog.TriggerValueSet, entries[0].TriggerType)
}
