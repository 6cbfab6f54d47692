package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a row cannot be found.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidID is returned when an invalid ID is provided.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrDuplicateEntry is returned when a unique constraint is violated.
	ErrDuplicateEntry = errors.New("store: duplicate entry")

	// ErrNotConnected is returned when operations are attempted on a closed store.
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Open is called twice for the same store.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrSchema is returned when a schema migration fails. The owning actor
	// is unusable until the migration is fixed.
	ErrSchema = errors.New("store: schema migration failed")

	// ErrTransactionFailed is returned when a database transaction fails.
	// This indicates the atomic operation could not complete and no changes were made.
	ErrTransactionFailed = errors.New("store: transaction failed")
)

// Error checking helpers.

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

func IsSchema(err error) bool {
	return errors.Is(err, ErrSchema)
}
