package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/magnet-design/magnet-core/internal/persistence/models"
	"github.com/magnet-design/magnet-core/pkg/state"
)

// ErrSnapshotNotFound is returned by SnapshotRepository.Load when no snapshot
// has been saved for the requested transaction.
var ErrSnapshotNotFound = errors.New("persistence: snapshot not found")

// SnapshotRepository durably stores state.Snapshot values keyed by
// transaction ID, for crash-recovery replay of an in-flight cycle.
type SnapshotRepository interface {
	Save(ctx context.Context, transactionID, proposalID string, snap state.Snapshot) error
	Load(ctx context.Context, transactionID string) (state.Snapshot, error)
}

// NopSnapshotRepository discards saves and reports every load as not found.
// It is the default when no database is configured.
type NopSnapshotRepository struct{}

// Save implements SnapshotRepository by doing nothing.
func (NopSnapshotRepository) Save(context.Context, string, string, state.Snapshot) error {
	return nil
}

// Load implements SnapshotRepository by always reporting ErrSnapshotNotFound.
func (NopSnapshotRepository) Load(context.Context, string) (state.Snapshot, error) {
	return state.Snapshot{}, ErrSnapshotNotFound
}

// BunSnapshotRepository persists snapshots via Bun/PostgreSQL.
type BunSnapshotRepository struct {
	db *bun.DB
}

// NewBunSnapshotRepository constructs a repository over db.
func NewBunSnapshotRepository(db *bun.DB) *BunSnapshotRepository {
	return &BunSnapshotRepository{db: db}
}

// Save upserts the snapshot for transactionID, replacing any prior snapshot
// for the same transaction — only the latest state matters for recovery.
func (r *BunSnapshotRepository) Save(ctx context.Context, transactionID, proposalID string, snap state.Snapshot) error {
	row := &models.StateSnapshotModel{
		TransactionID: transactionID,
		ProposalID:    proposalID,
		StateDict:     models.JSONBMap(snap.ToDict()),
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (transaction_id) DO UPDATE").
		Set("proposal_id = EXCLUDED.proposal_id").
		Set("state_dict = EXCLUDED.state_dict").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for transaction %s: %w", transactionID, err)
	}
	return nil
}

// Load fetches the most recently saved snapshot for transactionID.
func (r *BunSnapshotRepository) Load(ctx context.Context, transactionID string) (state.Snapshot, error) {
	var row models.StateSnapshotModel
	err := r.db.NewSelect().
		Model(&row).
		Where("transaction_id = ?", transactionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.Snapshot{}, ErrSnapshotNotFound
		}
		return state.Snapshot{}, fmt.Errorf("failed to load snapshot for transaction %s: %w", transactionID, err)
	}

	snap, err := state.SnapshotFromDict(row.StateDict)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to decode snapshot for transaction %s: %w", transactionID, err)
	}
	return snap, nil
}
