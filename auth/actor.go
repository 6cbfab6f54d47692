// Package auth implements the singleton auth actor: users, sessions and
// mailbox access grants, backed by its own embedded store.
//
// Like the mailbox actor, it performs no locking of its own; the registry
// serializes operations. The first-user-admin bootstrap depends on that
// serialization plus a transaction around the zero-count check and insert.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbaliyan/webmail/store"
)

// DefaultSessionTTL is how long a login session stays valid. Expiry is
// checked lazily at validation time; nothing sweeps expired rows.
const DefaultSessionTTL = 30 * 24 * time.Hour

// MinPasswordLength is the minimum-strength policy for new passwords.
const MinPasswordLength = 8

var migrations = []store.Migration{
	{
		Name: "1_auth_setup",
		SQL: `
			CREATE TABLE users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				is_admin INTEGER DEFAULT 0,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);

			CREATE TABLE user_mailboxes (
				user_id TEXT NOT NULL,
				mailbox_id TEXT NOT NULL,
				role TEXT NOT NULL,
				PRIMARY KEY (user_id, mailbox_id)
			);

			CREATE TABLE sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				expires_at INTEGER NOT NULL,
				created_at INTEGER NOT NULL
			);

			CREATE INDEX idx_sessions_user_id ON sessions(user_id);
			CREATE INDEX idx_sessions_expires_at ON sessions(expires_at);
			CREATE INDEX idx_user_mailboxes_user_id ON user_mailboxes(user_id);
			CREATE INDEX idx_user_mailboxes_mailbox_id ON user_mailboxes(mailbox_id);
		`,
	},
}

// Actor owns the auth store. All methods assume the caller serializes access.
type Actor struct {
	db         *store.DB
	logger     *slog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// Open opens (creating if needed) the auth store at path and brings its
// schema up to date. sessionTTL <= 0 uses DefaultSessionTTL.
func Open(ctx context.Context, path string, sessionTTL time.Duration, logger *slog.Logger) (*Actor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open auth store: %w", err)
	}
	if err := store.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate auth store: %w", err)
	}

	logger.Debug("auth actor ready", "path", path)
	return &Actor{db: db, logger: logger, sessionTTL: sessionTTL, now: time.Now}, nil
}

// Close releases the underlying store.
func (a *Actor) Close() error {
	return a.db.Close()
}
