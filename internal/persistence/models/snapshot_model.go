package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StateSnapshotModel durably stores a pkg/state.Snapshot keyed by the
// transaction it was taken for, enabling crash-recovery replay of an
// in-flight propose-validate-revise cycle.
type StateSnapshotModel struct {
	bun.BaseModel `bun:"table:magnet_state_snapshots,alias:ss"`

	ID            uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	TransactionID string    `bun:"transaction_id,notnull,unique"`
	ProposalID    string    `bun:"proposal_id,notnull"`
	StateDict     JSONBMap  `bun:"state_dict,type:jsonb,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// BeforeInsert assigns the primary key when absent.
func (m *StateSnapshotModel) BeforeInsert(ctx any) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}
