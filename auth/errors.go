package auth

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// Sentinel errors for the auth package.
// Use errors.Is() to check for these errors.
var (
	// ErrNotFound is returned when a user or grant cannot be found.
	// Wraps store.ErrNotFound.
	ErrNotFound = fmt.Errorf("auth: %w", store.ErrNotFound)

	// ErrDuplicateEntry is returned when registering an email that already
	// exists. Wraps store.ErrDuplicateEntry.
	ErrDuplicateEntry = fmt.Errorf("auth: %w", store.ErrDuplicateEntry)

	// ErrWeakPassword is returned when a password fails the minimum-strength
	// policy.
	ErrWeakPassword = errors.New("auth: password too weak")

	// ErrRegistrationClosed is returned by public registration once the
	// first account exists. Further accounts are created by an admin.
	ErrRegistrationClosed = errors.New("auth: registration is closed")

	// ErrInvalidCredentials is returned on any login failure. Callers cannot
	// distinguish an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidSession is returned when a session token is missing, unknown
	// or expired.
	ErrInvalidSession = errors.New("auth: invalid session")

	// ErrInvalidRole is returned when a grant names a role outside the
	// enumerated set.
	ErrInvalidRole = errors.New("auth: invalid role")
)
