package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// timingEqualizationHash is a real bcrypt digest at the same cost as stored
// password hashes. It must be well formed: a malformed value makes
// CompareHashAndPassword bail out before the key derivation, and unknown
// emails would fail measurably faster than wrong passwords.
const timingEqualizationHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Login verifies the password and creates a session with a fresh random
// token. Every failure is ErrInvalidCredentials; an unknown email and a
// wrong password are indistinguishable to the caller.
func (a *Actor) Login(ctx context.Context, email, password string) (*Session, error) {
	var row userRow
	err := a.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, is_admin, created_at, updated_at
		FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparison anyway so the timing of unknown emails matches
		// known ones.
		bcrypt.CompareHashAndPassword([]byte(timingEqualizationHash), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	now := a.now().UTC()
	expires := now.Add(a.sessionTTL)

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`, token, row.ID, expires.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	a.logger.Info("session created", "user_id", row.ID)
	return &Session{
		ID:        token,
		UserID:    row.ID,
		Email:     row.Email,
		IsAdmin:   row.IsAdmin,
		ExpiresAt: expires,
		CreatedAt: now,
	}, nil
}

// ValidateSession resolves a token to its session plus the user's current
// email and admin flag. Expiry is checked here, lazily: an expired session
// row is deleted on sight rather than by any background sweeper.
func (a *Actor) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	var row struct {
		sessionRow
		Email   string `db:"email"`
		IsAdmin bool   `db:"is_admin"`
	}
	err := a.db.GetContext(ctx, &row, `
		SELECT s.id, s.user_id, s.expires_at, s.created_at, u.email, u.is_admin
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.id = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess := &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Email:     row.Email,
		IsAdmin:   row.IsAdmin,
		ExpiresAt: unixTime(row.ExpiresAt),
		CreatedAt: unixTime(row.CreatedAt),
	}

	if !a.now().Before(sess.ExpiresAt) {
		if _, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, token); err != nil {
			a.logger.Warn("failed to drop expired session", "error", err)
		}
		return nil, ErrInvalidSession
	}
	return sess, nil
}

// Logout revokes a session. Revoking an unknown or already-expired token is
// not an error.
func (a *Actor) Logout(ctx context.Context, token string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// newSessionToken returns an unguessable 256-bit token, base64url encoded.
func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
