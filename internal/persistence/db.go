// Package persistence provides optional, durable storage for the trigger
// log and in-flight transaction snapshots via Bun over PostgreSQL. No pkg/
// package imports this one: internal/runtime forwards trigger-log entries
// through triggerlog.Log.SetSink and hands the snapshot repository to
// pkg/protocol.CycleExecutor as its SnapshotSaver, so the core engine runs
// with zero external dependencies when persistence isn't wired in.
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/magnet-design/magnet-core/internal/config"
	"github.com/magnet-design/magnet-core/internal/persistence/models"
)

// Open connects to PostgreSQL via pgdriver and wraps the connection in a
// bun.DB configured for the models in ./models.
func Open(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL)))
	sqldb.SetMaxOpenConns(cfg.MaxConnections)
	sqldb.SetMaxIdleConns(cfg.MinConnections)
	sqldb.SetConnMaxIdleTime(cfg.MaxIdleTime)
	sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)

	db := bun.NewDB(sqldb, pgdialect.New(), bun.WithDiscardUnknownColumns())
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// CreateSchema creates the tables the persistence repositories need, for
// deployments that don't run a separate migration tool.
func CreateSchema(db *bun.DB) error {
	ctx := context.Background()
	for _, model := range []any{(*models.TriggerLogEntryModel)(nil), (*models.StateSnapshotModel)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}
	return nil
}
