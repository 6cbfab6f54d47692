package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	steps := []Migration{
		{Name: "1_create_things", SQL: `CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT)`},
		{Name: "2_add_color", SQL: `ALTER TABLE things ADD COLUMN color TEXT`},
	}

	t.Run("applies steps in order", func(t *testing.T) {
		db, err := Open(MemoryPath)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer db.Close()

		if err := Migrate(ctx, db, steps); err != nil {
			t.Fatalf("migrate: %v", err)
		}

		if _, err := db.ExecContext(ctx,
			`INSERT INTO things (id, name, color) VALUES ('a', 'thing', 'red')`); err != nil {
			t.Fatalf("schema not applied: %v", err)
		}
	})

	t.Run("idempotent across reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "things.db")

		db, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := Migrate(ctx, db, steps); err != nil {
			t.Fatalf("first migrate: %v", err)
		}
		db.Close()

		db, err = Open(path)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		defer db.Close()

		// Re-running must not attempt to recreate objects.
		if err := Migrate(ctx, db, steps); err != nil {
			t.Fatalf("second migrate: %v", err)
		}

		var applied int
		if err := db.GetContext(ctx, &applied, `SELECT COUNT(*) FROM schema_migrations`); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if applied != len(steps) {
			t.Errorf("expected %d applied steps, got %d", len(steps), applied)
		}
	})

	t.Run("failing step is a schema error and rolls back", func(t *testing.T) {
		db, err := Open(MemoryPath)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer db.Close()

		bad := []Migration{
			{Name: "1_ok", SQL: `CREATE TABLE ok (id TEXT PRIMARY KEY)`},
			{Name: "2_broken", SQL: `ALTER TABLE missing ADD COLUMN x TEXT`},
		}

		err = Migrate(ctx, db, bad)
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("expected ErrSchema, got %v", err)
		}

		// The broken step must not have been recorded as applied.
		var count int
		if err := db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM schema_migrations WHERE name = '2_broken'`); err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Error("broken migration was recorded as applied")
		}
	})

	t.Run("closed store rejects migration", func(t *testing.T) {
		db, err := Open(MemoryPath)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		db.Close()

		if err := Migrate(ctx, db, steps); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})
}

func TestInTxRollback(t *testing.T) {
	ctx := context.Background()
	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `CREATE TABLE t (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err = db.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (id) VALUES ('x')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM t`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback, found %d rows", count)
	}
}
