package auth

import (
	"context"
	"fmt"
)

// GrantAccess upserts a mailbox access grant. An existing grant for the same
// (user, mailbox) pair has its role replaced. A role outside the enumerated
// set yields ErrInvalidRole.
func (a *Actor) GrantAccess(ctx context.Context, userID, mailboxID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO user_mailboxes (user_id, mailbox_id, role) VALUES (?, ?, ?)
		ON CONFLICT (user_id, mailbox_id) DO UPDATE SET role = excluded.role`,
		userID, mailboxID, string(role))
	if err != nil {
		return fmt.Errorf("grant access: %w", err)
	}

	a.logger.Info("access granted", "user_id", userID, "mailbox_id", mailboxID, "role", role)
	return nil
}

// RevokeAccess deletes the grant if present, or returns ErrNotFound.
func (a *Actor) RevokeAccess(ctx context.Context, userID, mailboxID string) error {
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM user_mailboxes WHERE user_id = ? AND mailbox_id = ?`, userID, mailboxID)
	if err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("grant (%s, %s): %w", userID, mailboxID, ErrNotFound)
	}

	a.logger.Info("access revoked", "user_id", userID, "mailbox_id", mailboxID)
	return nil
}

// Grants returns all grants for a user.
func (a *Actor) Grants(ctx context.Context, userID string) ([]Grant, error) {
	var grants []Grant
	err := a.db.SelectContext(ctx, &grants, `
		SELECT user_id, mailbox_id, role FROM user_mailboxes
		WHERE user_id = ? ORDER BY mailbox_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return grants, nil
}
