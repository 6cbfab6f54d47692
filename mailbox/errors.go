package mailbox

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// Sentinel errors for the mailbox package.
// Use errors.Is() to check for these errors.
//
// Errors that correspond to store-level conditions wrap the store sentinels,
// so errors.Is(err, mailbox.ErrNotFound) matches both levels.
var (
	// ErrNotFound is returned when a folder, email, attachment or contact
	// cannot be found. Wraps store.ErrNotFound.
	ErrNotFound = fmt.Errorf("mailbox: %w", store.ErrNotFound)

	// ErrOriginalNotFound is returned by CreateReply and CreateForward when
	// the referenced original email does not exist. Wraps store.ErrNotFound.
	ErrOriginalNotFound = fmt.Errorf("mailbox: original email not found: %w", store.ErrNotFound)

	// ErrDuplicateEntry is returned on duplicate folder slugs and duplicate
	// contact emails. Wraps store.ErrDuplicateEntry.
	ErrDuplicateEntry = fmt.Errorf("mailbox: %w", store.ErrDuplicateEntry)

	// ErrSystemFolder is returned when deleting one of the seeded system folders.
	ErrSystemFolder = errors.New("mailbox: system folder cannot be deleted")

	// ErrFolderNotEmpty is returned when deleting a deletable folder that
	// still contains emails. Move or delete the emails first.
	ErrFolderNotEmpty = errors.New("mailbox: folder is not empty")

	// ErrInvalidFolderName is returned when a folder name slugifies to nothing.
	ErrInvalidFolderName = errors.New("mailbox: invalid folder name")

	// ErrInvalidSort is returned when GetEmails is asked to sort by an
	// unknown column.
	ErrInvalidSort = errors.New("mailbox: invalid sort column")
)
