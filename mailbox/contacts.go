package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rbaliyan/webmail/store"
)

// Contacts returns all contacts ordered by id.
func (a *Actor) Contacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	err := a.db.SelectContext(ctx, &contacts,
		`SELECT id, COALESCE(name, '') AS name, email FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// CreateContact inserts a contact. Email is unique per mailbox; duplicates
// yield ErrDuplicateEntry. Name may be empty.
func (a *Actor) CreateContact(ctx context.Context, name, email string) (*Contact, error) {
	res, err := a.db.ExecContext(ctx,
		`INSERT INTO contacts (name, email) VALUES (?, ?)`, nullable(name), email)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("contact %q: %w", email, ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("create contact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return &Contact{ID: id, Name: name, Email: email}, nil
}

// UpdateContact applies a partial update and returns the fresh record, or
// ErrNotFound.
func (a *Actor) UpdateContact(ctx context.Context, id int64, upd ContactUpdate) (*Contact, error) {
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		sets = append(sets, `name = ?`)
		args = append(args, nullable(*upd.Name))
	}
	if upd.Email != nil {
		sets = append(sets, `email = ?`)
		args = append(args, *upd.Email)
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := a.db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE contacts SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return nil, fmt.Errorf("contact email: %w", ErrDuplicateEntry)
			}
			return nil, fmt.Errorf("update contact: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("update contact: %w", err)
		} else if n == 0 {
			return nil, fmt.Errorf("contact %d: %w", id, ErrNotFound)
		}
	}

	var c Contact
	err := a.db.GetContext(ctx, &c,
		`SELECT id, COALESCE(name, '') AS name, email FROM contacts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reload contact: %w", err)
	}
	return &c, nil
}

// DeleteContact removes a contact by id, or returns ErrNotFound.
func (a *Actor) DeleteContact(ctx context.Context, id int64) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	return nil
}
