package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Migration is a named schema step. Steps are applied in slice order, each
// inside its own transaction together with the record marking it applied, so
// a step either happens exactly once or not at all.
type Migration struct {
	Name string
	SQL  string
}

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)
`

// Migrate applies every migration not yet recorded in schema_migrations.
// It is idempotent across restarts. Any failure is wrapped in ErrSchema:
// the owning actor must treat the store as unusable until fixed.
func Migrate(ctx context.Context, db *DB, migrations []Migration) error {
	if !db.Connected() {
		return ErrNotConnected
	}

	if _, err := db.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("%w: create migrations table: %v", ErrSchema, err)
	}

	applied := make(map[string]bool)
	var names []string
	if err := db.SelectContext(ctx, &names, `SELECT name FROM schema_migrations`); err != nil {
		return fmt.Errorf("%w: read applied migrations: %v", ErrSchema, err)
	}
	for _, n := range names {
		applied[n] = true
	}

	for _, m := range migrations {
		if applied[m.Name] {
			continue
		}
		err := db.InTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("apply %q: %w", m.Name, err)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
				m.Name, time.Now().UTC().Format(time.RFC3339))
			if err != nil {
				return fmt.Errorf("record %q: %w", m.Name, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSchema, err)
		}
	}
	return nil
}
