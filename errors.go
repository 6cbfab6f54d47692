package webmail

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// Sentinel errors for the webmail package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding store-level errors where applicable,
// so errors.Is(err, webmail.ErrNotFound) will match both webmail-level
// and store-level "not found" errors.
var (
	// ErrNotFound is returned when a requested record cannot be found.
	// Wraps store.ErrNotFound for consistent error checking.
	ErrNotFound = fmt.Errorf("webmail: %w", store.ErrNotFound)

	// ErrDuplicateEntry is returned when a unique constraint is violated.
	// Wraps store.ErrDuplicateEntry for consistent error checking.
	ErrDuplicateEntry = fmt.Errorf("webmail: %w", store.ErrDuplicateEntry)

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("webmail: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("webmail: %w", store.ErrAlreadyConnected)

	// ErrInvalidMailboxID is returned when a mailbox key is empty or
	// contains unsafe characters.
	ErrInvalidMailboxID = errors.New("webmail: invalid mailbox id")

	// ErrBlobStoreRequired is returned when no blob store is configured.
	ErrBlobStoreRequired = errors.New("webmail: blob store is required")
)
