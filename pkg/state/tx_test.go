package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/pkg/value"
)

func TestBeginCommitDiscardsSnapshot(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Set("hull.loa", value.Float(100), "hull/generator"))
	tm := NewTxManager(s)

	id, err := tm.Begin("protocol/cycle_executor", "revise loa", ReadCommitted)
	require.NoError(t, err)

	require.NoError(t, s.Set("hull.loa", value.Float(150), "protocol/cycle_executor"))
	require.NoError(t, tm.Commit(id))

	txn, ok := tm.GetTransaction(id)
	require.True(t, ok)
	assert.Equal(t, TxCommitted, txn.State)
	assert.False(t, tm.IsActive())
	assert.True(t, value.Equal(value.Float(150), s.Get("hull.loa", value.Null())))
}

func TestBeginRollbackRestoresSnapshot(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Set("hull.loa", value.Float(100), "hull/generator"))
	tm := NewTxManager(s)

	id, err := tm.Begin("protocol/cycle_executor", "revise loa", "")
	require.NoError(t, err)

	require.NoError(t, s.Set("hull.loa", value.Float(999), "protocol/cycle_executor"))
	require.NoError(t, tm.Rollback(id))

	txn, ok := tm.GetTransaction(id)
	require.True(t, ok)
	assert.Equal(t, TxRolledBack, txn.State)
	assert.True(t, value.Equal(value.Float(100), s.Get("hull.loa", value.Null())))
}

func TestSecondBeginFailsWhileOneActive(t *testing.T) {
	s := New(nil)
	tm := NewTxManager(s)

	_, err := tm.Begin("a", "first", ReadCommitted)
	require.NoError(t, err)

	_, err = tm.Begin("b", "second", ReadCommitted)
	require.Error(t, err)
}

func TestCommitWithoutActiveTransactionFails(t *testing.T) {
	s := New(nil)
	tm := NewTxManager(s)
	err := tm.Commit("")
	require.Error(t, err)
}

func TestRecordChangeAccumulatesOnTransaction(t *testing.T) {
	s := New(nil)
	tm := NewTxManager(s)
	id, err := tm.Begin("a", "desc", ReadCommitted)
	require.NoError(t, err)

	require.NoError(t, tm.RecordChange(id, "hull.loa", value.Float(100), value.Float(120)))
	require.NoError(t, tm.RecordChange(id, "hull.beam", value.Float(18), value.Float(19)))

	txn, ok := tm.GetTransaction(id)
	require.True(t, ok)
	require.Len(t, txn.Changes, 2)
	assert.Equal(t, "hull.loa", txn.Changes[0].Path)
}

func TestGetAllReturnsTransactionsInBeginOrder(t *testing.T) {
	s := New(nil)
	tm := NewTxManager(s)

	id1, err := tm.Begin("a", "first", ReadCommitted)
	require.NoError(t, err)
	require.NoError(t, tm.Commit(id1))

	id2, err := tm.Begin("b", "second", ReadCommitted)
	require.NoError(t, err)
	require.NoError(t, tm.Rollback(id2))

	all := tm.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, id1, all[0].ID)
	assert.Equal(t, id2, all[1].ID)
}
