// Package mailbox implements the per-mailbox actor: a single-writer state
// machine owning one embedded store with folders, emails, attachment
// metadata and contacts.
//
// An Actor performs no locking of its own. The registry guarantees at most
// one live instance per mailbox key and serializes operations against it;
// the Actor's job is data consistency, enforced with one transaction per
// logical operation.
package mailbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbaliyan/webmail/store"
)

// migrations are the ordered schema steps for a mailbox store, applied on
// first open. The initial step seeds the five system folders.
var migrations = []store.Migration{
	{
		Name: "1_initial_setup",
		SQL: `
			CREATE TABLE folders (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				is_deletable INTEGER NOT NULL DEFAULT 1
			);

			INSERT INTO folders (id, name, is_deletable) VALUES
				('inbox', 'Inbox', 0),
				('sent', 'Sent', 0),
				('trash', 'Trash', 0),
				('archive', 'Archive', 0),
				('spam', 'Spam', 0);

			CREATE TABLE emails (
				id TEXT PRIMARY KEY,
				folder_id TEXT NOT NULL,
				subject TEXT,
				sender TEXT,
				recipient TEXT,
				date TEXT,
				read INTEGER DEFAULT 0,
				starred INTEGER DEFAULT 0,
				body TEXT,
				FOREIGN KEY(folder_id) REFERENCES folders(id) ON DELETE CASCADE
			);

			CREATE TABLE contacts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT,
				email TEXT NOT NULL UNIQUE
			);

			CREATE TABLE attachments (
				id TEXT PRIMARY KEY,
				email_id TEXT NOT NULL,
				filename TEXT NOT NULL,
				mimetype TEXT NOT NULL,
				size INTEGER NOT NULL,
				content_id TEXT,
				disposition TEXT,
				FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Name: "2_email_threading",
		SQL: `
			ALTER TABLE emails ADD COLUMN in_reply_to TEXT;
			ALTER TABLE emails ADD COLUMN thread_id TEXT;
			ALTER TABLE emails ADD COLUMN email_references TEXT;
			CREATE INDEX idx_emails_thread_id ON emails(thread_id);
			CREATE INDEX idx_emails_folder_date ON emails(folder_id, date DESC);
		`,
	},
	{
		Name: "3_trash_tracking",
		SQL: `
			ALTER TABLE emails ADD COLUMN trashed_at TEXT;
			CREATE INDEX idx_emails_trashed_at ON emails(trashed_at);
		`,
	},
}

// Actor owns one mailbox's store. All methods assume the caller serializes
// access per mailbox key.
type Actor struct {
	id     string
	db     *store.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the mailbox store at path and brings its
// schema up to date. A migration failure leaves the actor unusable and is
// reported as a store.ErrSchema-wrapped error.
func Open(ctx context.Context, mailboxID, path string, logger *slog.Logger) (*Actor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mailbox store: %w", err)
	}

	if err := store.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate mailbox %s: %w", mailboxID, err)
	}

	logger.Debug("mailbox actor ready", "mailbox_id", mailboxID, "path", path)
	return &Actor{id: mailboxID, db: db, logger: logger}, nil
}

// ID returns the mailbox key this actor serves.
func (a *Actor) ID() string { return a.id }

// Close releases the underlying store. The actor must not be used afterwards.
func (a *Actor) Close() error {
	return a.db.Close()
}
