// Package blob defines the external blob store contract used for attachment
// bytes and mailbox settings documents, plus the key layout shared by all
// backends. Implementations are in blob/memory, blob/s3 and blob/gcs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errors.New("blob: not found")

// Store is a flat keyed byte store. Keys are slash-separated paths.
//
// Values are whole documents (attachment payloads, small JSON settings);
// there is no streaming or range access in this contract.
type Store interface {
	// Put stores data under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Head reports whether key exists without fetching the value.
	Head(ctx context.Context, key string) (bool, error)
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

const (
	settingsPrefix   = "mailboxes/"
	attachmentPrefix = "attachments/"
)

// SettingsKey is the key of a mailbox's settings document. The document's
// existence doubles as the mailbox-existence signal checked by the gateway;
// its content is an opaque JSON value validated by its producer, not here.
func SettingsKey(mailboxID string) string {
	return settingsPrefix + mailboxID + ".json"
}

// SettingsPrefix lists all mailbox settings documents.
func SettingsPrefix() string { return settingsPrefix }

// MailboxIDFromSettingsKey inverts SettingsKey. The second return is false
// for keys outside the settings layout.
func MailboxIDFromSettingsKey(key string) (string, bool) {
	if !strings.HasPrefix(key, settingsPrefix) || !strings.HasSuffix(key, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, settingsPrefix), ".json")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// AttachmentKey is the key of one attachment's bytes:
// attachments/{emailId}/{attachmentId}/{filename}.
func AttachmentKey(emailID, attachmentID, filename string) string {
	return attachmentPrefix + path.Join(emailID, attachmentID, filename)
}

// AttachmentPrefix lists every attachment key of one email, for purging.
func AttachmentPrefix(emailID string) string {
	return fmt.Sprintf("%s%s/", attachmentPrefix, emailID)
}
