package state

import (
	"sync"
	"time"

	"github.com/google/uuid"

	magerrors "github.com/magnet-design/magnet-core/pkg/errors"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// IsolationLevel is a label consumed by future multi-writer extensions; the
// current contract guarantees serializable behavior by enforcing a single
// active transaction per TxManager (spec §4.7).
type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "READ_COMMITTED"
	RepeatableRead IsolationLevel = "REPEATABLE_READ"
	Serializable   IsolationLevel = "SERIALIZABLE"
)

// TransactionState is the lifecycle of a Transaction.
type TransactionState string

const (
	TxActive     TransactionState = "ACTIVE"
	TxCommitted  TransactionState = "COMMITTED"
	TxRolledBack TransactionState = "ROLLED_BACK"
)

// ChangeRecord is a caller-recorded (path, old, new) triple accumulated
// during a transaction via RecordChange.
type ChangeRecord struct {
	Path string
	Old  value.Value
	New  value.Value
}

// Transaction is the record of a single begin/commit-or-rollback cycle.
type Transaction struct {
	ID          string
	Source      string
	Description string
	Isolation   IsolationLevel
	State       TransactionState
	StartedAt   time.Time
	EndedAt     time.Time
	Changes     []ChangeRecord

	snapshot Snapshot
}

// TxManager wraps a Store with single-writer transaction semantics. mu is
// held only for the duration of each method call; the single-writer rule
// comes from the active pointer, so a second Begin fails immediately with
// ErrTransactionAlreadyActive while a transaction is open. The "transaction"
// spans multiple caller-driven Set calls, which TxManager does not itself
// gate.
type TxManager struct {
	store *Store

	mu     sync.Mutex
	active *Transaction
	all    map[string]*Transaction
	order  []string
}

// NewTxManager constructs a TxManager over store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{
		store: store,
		all:   make(map[string]*Transaction),
	}
}

// Begin snapshots the store and opens a new transaction. Fails with
// ErrTransactionAlreadyActive if one is already open.
func (m *TxManager) Begin(source, description string, isolation IsolationLevel) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return "", magerrors.Wrap(magerrors.KindState, "TRANSACTION_ALREADY_ACTIVE",
			"cannot begin a new transaction while "+m.active.ID+" is active",
			"commit or roll back the active transaction first",
			magerrors.ErrTransactionAlreadyActive)
	}

	if isolation == "" {
		isolation = ReadCommitted
	}

	txn := &Transaction{
		ID:          uuid.NewString(),
		Source:      source,
		Description: description,
		Isolation:   isolation,
		State:       TxActive,
		StartedAt:   time.Now().UTC(),
		snapshot:    m.store.Snapshot(),
	}
	m.active = txn
	m.all[txn.ID] = txn
	m.order = append(m.order, txn.ID)
	return txn.ID, nil
}

// resolve returns the transaction named by id, defaulting to the active one
// when id is empty. Must be called with m.mu held.
func (m *TxManager) resolve(id string) (*Transaction, error) {
	if id == "" {
		if m.active == nil {
			return nil, magerrors.Wrap(magerrors.KindState, "NO_ACTIVE_TRANSACTION",
				"no transaction is active", "call Begin first", magerrors.ErrNoActiveTransaction)
		}
		return m.active, nil
	}
	txn, ok := m.all[id]
	if !ok {
		return nil, magerrors.Wrap(magerrors.KindState, "TRANSACTION_NOT_FOUND",
			"no transaction with id "+id, "verify the transaction id", magerrors.ErrTransactionNotFound)
	}
	return txn, nil
}

// Commit transitions the named (or active) transaction ACTIVE -> COMMITTED
// and discards its snapshot.
func (m *TxManager) Commit(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := m.resolve(id)
	if err != nil {
		return err
	}
	if txn.State != TxActive {
		return magerrors.StateErr("TRANSACTION_NOT_ACTIVE",
			"transaction "+txn.ID+" is not active (state="+string(txn.State)+")", nil)
	}
	txn.State = TxCommitted
	txn.EndedAt = time.Now().UTC()
	txn.snapshot = Snapshot{}
	if m.active == txn {
		m.active = nil
	}
	return nil
}

// Rollback transitions the named (or active) transaction ACTIVE ->
// ROLLED_BACK and restores the store to the pre-begin snapshot.
func (m *TxManager) Rollback(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := m.resolve(id)
	if err != nil {
		return err
	}
	if txn.State != TxActive {
		return magerrors.StateErr("TRANSACTION_NOT_ACTIVE",
			"transaction "+txn.ID+" is not active (state="+string(txn.State)+")", nil)
	}
	m.store.Restore(txn.snapshot)
	txn.State = TxRolledBack
	txn.EndedAt = time.Now().UTC()
	if m.active == txn {
		m.active = nil
	}
	return nil
}

// RecordChange appends a caller-supplied change to the named (or active)
// transaction's history without touching the store.
func (m *TxManager) RecordChange(id, path string, old, new value.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := m.resolve(id)
	if err != nil {
		return err
	}
	txn.Changes = append(txn.Changes, ChangeRecord{Path: path, Old: old, New: new})
	return nil
}

// IsActive reports whether a transaction is currently open.
func (m *TxManager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// GetActiveTransaction returns the currently active transaction, or nil.
func (m *TxManager) GetActiveTransaction() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// GetTransaction looks up a transaction by id.
func (m *TxManager) GetTransaction(id string) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.all[id]
	return txn, ok
}

// GetAll returns every transaction this manager has ever opened, in begin
// order.
func (m *TxManager) GetAll() []*Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Transaction, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.all[id])
	}
	return out
}
