package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rbaliyan/webmail/store"
	"golang.org/x/crypto/bcrypt"
)

// Register handles public registration under the smart-bootstrap policy:
// when no user exists yet, the account is created and becomes administrator;
// once any user exists, public registration returns ErrRegistrationClosed.
//
// The zero-count check and the insert share one transaction so two
// concurrent bootstrap attempts cannot both observe an empty table. That
// only holds because the registry guarantees a single live auth actor;
// see the package comment.
func (a *Actor) Register(ctx context.Context, email, password string) (*User, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user User
	err = a.db.InTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if count > 0 {
			return ErrRegistrationClosed
		}

		u, err := a.insertUser(ctx, tx, email, string(hash), true)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("first user registered as admin", "user_id", user.ID)
	return &user, nil
}

// RegisterByAdmin creates a non-admin account. The caller is responsible for
// having verified the invoking session belongs to an administrator.
func (a *Actor) RegisterByAdmin(ctx context.Context, email, password string) (*User, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user User
	err = a.db.InTx(ctx, func(tx *sqlx.Tx) error {
		u, err := a.insertUser(ctx, tx, email, string(hash), false)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("user registered by admin", "user_id", user.ID)
	return &user, nil
}

func (a *Actor) insertUser(ctx context.Context, tx *sqlx.Tx, email, hash string, admin bool) (User, error) {
	now := a.now().UTC()
	row := userRow{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      admin,
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, row.Email, row.PasswordHash, row.IsAdmin, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, fmt.Errorf("user %q: %w", email, ErrDuplicateEntry)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return row.user(), nil
}

// Users returns all accounts, without password hashes, ordered by creation.
func (a *Actor) Users(ctx context.Context) ([]User, error) {
	var rows []userRow
	err := a.db.SelectContext(ctx, &rows, `
		SELECT id, email, password_hash, is_admin, created_at, updated_at
		FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].user())
	}
	return users, nil
}

// UpdateUser applies a partial update and returns the fresh record, or
// ErrNotFound. A new password goes through the same strength policy as
// registration.
func (a *Actor) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	var (
		sets = []string{`updated_at = ?`}
		args = []any{a.now().UTC().Unix()}
	)
	if upd.Email != nil {
		sets = append(sets, `email = ?`)
		args = append(args, *upd.Email)
	}
	if upd.Password != nil {
		if err := checkPassword(*upd.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		sets = append(sets, `password_hash = ?`)
		args = append(args, string(hash))
	}
	if upd.IsAdmin != nil {
		sets = append(sets, `is_admin = ?`)
		args = append(args, *upd.IsAdmin)
	}
	args = append(args, id)

	res, err := a.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user email: %w", ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}

	var row userRow
	err = a.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, is_admin, created_at, updated_at
		FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	u := row.user()
	return &u, nil
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: need at least %d characters", ErrWeakPassword, MinPasswordLength)
	}
	return nil
}
