package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TriggerLogEntryModel is the durable row for one pkg/triggerlog.Entry,
// appended once and never updated.
type TriggerLogEntryModel struct {
	bun.BaseModel `bun:"table:magnet_trigger_log,alias:tl"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	EntryID     string    `bun:"entry_id,notnull,unique"`
	Timestamp   time.Time `bun:"timestamp,notnull"`
	TriggerType string    `bun:"trigger_type,notnull"`
	Parameter   string    `bun:"parameter"`
	Phase       string    `bun:"phase"`
	OldValue    JSONBMap  `bun:"old_value,type:jsonb"`
	NewValue    JSONBMap  `bun:"new_value,type:jsonb"`
	Source      string    `bun:"source,notnull"`
	Metadata    JSONBMap  `bun:"metadata,type:jsonb"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// BeforeInsert assigns the primary key when absent.
func (m *TriggerLogEntryModel) BeforeInsert(ctx any) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}
