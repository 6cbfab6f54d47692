// Package store provides the embedded relational store backing each actor.
//
// Every actor owns exactly one SQLite database file, reachable only through
// the actor. The store deliberately has no server component: durability and
// atomicity come from SQLite transactions, and serialization of mutations
// comes from the actor registry, not from locks in this package.
//
// A connection is restricted to a single underlying SQLite handle so that
// transactions issued by the owning actor never contend with each other.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database instead of a file.
// Useful for tests; the database vanishes when the store is closed.
const MemoryPath = ":memory:"

// DB is an open handle to an actor's embedded database.
type DB struct {
	*sqlx.DB
	path      string
	connected int32
}

// Open opens (creating if necessary) the SQLite database at path and enables
// foreign-key enforcement. The parent directory is created when missing.
func Open(path string) (*DB, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// Single writer by design: the owning actor serializes all access, and a
	// single handle keeps in-memory databases alive across statements.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	s := &DB{DB: db, path: path, connected: 1}
	return s, nil
}

// Path returns the filesystem path of the database.
func (d *DB) Path() string { return d.path }

// Close closes the underlying database. Safe to call more than once.
func (d *DB) Close() error {
	if !atomic.CompareAndSwapInt32(&d.connected, 1, 0) {
		return nil
	}
	return d.DB.Close()
}

// Connected reports whether the database handle is open.
func (d *DB) Connected() bool {
	return atomic.LoadInt32(&d.connected) == 1
}

// InTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error and committed otherwise. Multi-statement invariants
// (threading fields, cascading deletes, folder seeding) must go through here
// so a crash can never leave a half-applied mutation.
func (d *DB) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if !d.Connected() {
		return ErrNotConnected
	}

	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTransactionFailed, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// violation. Callers translate this into ErrDuplicateEntry so that raw
// driver errors never escape the store layer.
func IsUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
