package persistence

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/magnet-design/magnet-core/internal/persistence/models"
	"github.com/magnet-design/magnet-core/pkg/triggerlog"
	"github.com/magnet-design/magnet-core/pkg/value"
)

// TriggerLogRepository durably appends pkg/triggerlog.Entry rows. pkg/state
// and pkg/triggerlog never import this interface directly — internal/runtime
// wires an implementation in by registering a triggerlog.Log.SetSink
// function that calls Append for every appended entry.
type TriggerLogRepository interface {
	Append(ctx context.Context, entry triggerlog.Entry) error
}

// NopTriggerLogRepository discards every entry. It is the default when no
// database is configured, so the core engine never requires PostgreSQL.
type NopTriggerLogRepository struct{}

// Append implements TriggerLogRepository by doing nothing.
func (NopTriggerLogRepository) Append(context.Context, triggerlog.Entry) error { return nil }

// BunTriggerLogRepository persists entries via Bun/PostgreSQL.
type BunTriggerLogRepository struct {
	db *bun.DB
}

// NewBunTriggerLogRepository constructs a repository over db.
func NewBunTriggerLogRepository(db *bun.DB) *BunTriggerLogRepository {
	return &BunTriggerLogRepository{db: db}
}

// Append inserts entry as a new row. Never updates or deletes — the log is
// append-only at the persistence layer too.
func (r *BunTriggerLogRepository) Append(ctx context.Context, entry triggerlog.Entry) error {
	row := &models.TriggerLogEntryModel{
		EntryID:     entry.EntryID,
		Timestamp:   entry.Timestamp,
		TriggerType: string(entry.TriggerType),
		Parameter:   entry.Parameter,
		Phase:       string(entry.Phase),
		Source:      entry.Source,
		OldValue:    valueToJSONBMap(entry.OldValue),
		NewValue:    valueToJSONBMap(entry.NewValue),
		Metadata:    metadataToJSONBMap(entry.Metadata),
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append trigger log entry: %w", err)
	}
	return nil
}

// Query loads entries matching filter, oldest first, for crash-recovery or
// audit tooling that needs history beyond the in-memory ring/TTL window.
func (r *BunTriggerLogRepository) Query(ctx context.Context, since, until string) ([]triggerlog.Entry, error) {
	var rows []models.TriggerLogEntryModel
	q := r.db.NewSelect().Model(&rows).OrderExpr("timestamp ASC")
	if since != "" {
		q = q.Where("timestamp >= ?", since)
	}
	if until != "" {
		q = q.Where("timestamp <= ?", until)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query trigger log: %w", err)
	}

	out := make([]triggerlog.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, triggerlog.Entry{
			EntryID:     row.EntryID,
			Timestamp:   row.Timestamp,
			TriggerType: triggerlog.TriggerType(row.TriggerType),
			Parameter:   row.Parameter,
			Source:      row.Source,
		})
	}
	return out, nil
}

func valueToJSONBMap(v *value.Value) models.JSONBMap {
	if v == nil {
		return nil
	}
	return models.JSONBMap{"value": value.Determinize(v.ToAny(), 0)}
}

func metadataToJSONBMap(m map[string]value.Value) models.JSONBMap {
	if len(m) == 0 {
		return nil
	}
	out := make(models.JSONBMap, len(m))
	for k, v := range m {
		out[k] = value.Determinize(v.ToAny(), 0)
	}
	return out
}
