package mailbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Listing defaults and bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// sortColumns is the allowlist for ListOptions.SortColumn. Anything else is
// ErrInvalidSort; user input must never reach ORDER BY verbatim.
var sortColumns = map[string]string{
	"":          "date",
	"date":      "date",
	"subject":   "subject",
	"sender":    "sender",
	"recipient": "recipient",
	"read":      "read",
	"starred":   "starred",
}

const emailColumns = `id, folder_id, subject, sender, recipient, date, read, starred,
	body, in_reply_to, thread_id, email_references`

// CreateEmail inserts an email and its attachment rows in one transaction.
// The new email starts its own thread. Returns ErrNotFound when folderID
// does not resolve.
func (a *Actor) CreateEmail(ctx context.Context, folderID string, data EmailData, attachments []AttachmentData) (*Email, error) {
	return a.createEmail(ctx, folderID, data, attachments, nil)
}

// CreateReply inserts a reply to originalID, deriving the threading fields
// from the parent: same thread id (or the parent's own id when the parent
// is a thread root), references extended with the parent's id.
// Returns ErrOriginalNotFound when originalID does not resolve.
func (a *Actor) CreateReply(ctx context.Context, originalID, folderID string, data EmailData, attachments []AttachmentData) (*Email, error) {
	return a.createEmail(ctx, folderID, data, attachments, &originalID)
}

// CreateForward validates that originalID exists and then inserts the email
// as a fresh thread root, with no reply linkage to the original.
// Returns ErrOriginalNotFound when originalID does not resolve.
func (a *Actor) CreateForward(ctx context.Context, originalID, folderID string, data EmailData, attachments []AttachmentData) (*Email, error) {
	if err := a.requireEmail(ctx, a.db, originalID); err != nil {
		return nil, err
	}
	return a.createEmail(ctx, folderID, data, attachments, nil)
}

// createEmail is the shared insert path. A non-nil replyTo makes the new
// email a reply to that id; nil starts a fresh thread.
func (a *Actor) createEmail(ctx context.Context, folderID string, data EmailData, attachments []AttachmentData, replyTo *string) (*Email, error) {
	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	if data.Date.IsZero() {
		data.Date = time.Now()
	}

	email := &Email{
		EmailMetadata: EmailMetadata{
			ID:        data.ID,
			FolderID:  folderID,
			Subject:   data.Subject,
			Sender:    data.Sender,
			Recipient: data.Recipient,
			Date:      data.Date.UTC(),
		},
		Body:     data.Body,
		ThreadID: data.ID,
	}

	err := a.db.InTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := a.folderExists(ctx, tx, folderID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}

		if replyTo != nil {
			parent, err := a.getEmailRow(ctx, tx, *replyTo)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOriginalNotFound
			}
			if err != nil {
				return fmt.Errorf("load original email: %w", err)
			}
			if err := threadReply(email, parent); err != nil {
				return err
			}
		}

		var refs any
		if len(email.References) > 0 {
			encoded, err := json.Marshal(email.References)
			if err != nil {
				return fmt.Errorf("encode references: %w", err)
			}
			refs = string(encoded)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO emails (id, folder_id, subject, sender, recipient, date,
			                    read, starred, body, in_reply_to, thread_id, email_references)
			VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)`,
			email.ID, email.FolderID, email.Subject, email.Sender, email.Recipient,
			formatDate(email.Date), email.Body, nullable(email.InReplyTo), email.ThreadID, refs)
		if err != nil {
			return fmt.Errorf("insert email: %w", err)
		}

		for i := range attachments {
			att := attachments[i]
			if att.ID == "" {
				att.ID = uuid.New().String()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO attachments (id, email_id, filename, mimetype, size, content_id, disposition)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				att.ID, email.ID, att.Filename, att.Mimetype, att.Size,
				nullable(att.ContentID), att.Disposition)
			if err != nil {
				return fmt.Errorf("insert attachment %s: %w", att.Filename, err)
			}
			email.Attachments = append(email.Attachments, Attachment{
				ID:          att.ID,
				EmailID:     email.ID,
				Filename:    att.Filename,
				Mimetype:    att.Mimetype,
				Size:        att.Size,
				ContentID:   att.ContentID,
				Disposition: att.Disposition,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("email created",
		"mailbox_id", a.id, "email_id", email.ID, "folder_id", folderID,
		"attachments", len(email.Attachments))
	return email, nil
}

// threadReply fills the reply's threading fields from its parent.
func threadReply(reply *Email, parent *emailRow) error {
	reply.InReplyTo = parent.ID

	reply.ThreadID = parent.ID
	if parent.ThreadID.Valid && parent.ThreadID.String != "" {
		reply.ThreadID = parent.ThreadID.String
	}

	var refs []string
	if parent.References.Valid && parent.References.String != "" {
		if err := json.Unmarshal([]byte(parent.References.String), &refs); err != nil {
			return fmt.Errorf("decode parent references: %w", err)
		}
	}
	if !slices.Contains(refs, parent.ID) {
		refs = append(refs, parent.ID)
	}
	reply.References = refs
	return nil
}

// Emails returns a page of email metadata, default ordered by date
// descending. Folder scoping is optional.
func (a *Actor) Emails(ctx context.Context, opts ListOptions) ([]EmailMetadata, error) {
	column, ok := sortColumns[opts.SortColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, opts.SortColumn)
	}
	direction := "DESC"
	if opts.SortDirection == SortAsc {
		direction = "ASC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	var (
		where string
		args  []any
	)
	if opts.Folder != "" {
		where = `WHERE folder_id = ?`
		args = append(args, opts.Folder)
	}
	args = append(args, limit, (page-1)*limit)

	query := fmt.Sprintf(`SELECT %s FROM emails %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		emailColumns, where, column, direction)

	var rows []emailRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}

	out := make([]EmailMetadata, 0, len(rows))
	for i := range rows {
		meta, err := rows[i].metadata()
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}

// Email returns the full record including its attachment list, or
// ErrNotFound.
func (a *Actor) Email(ctx context.Context, id string) (*Email, error) {
	row, err := a.getEmailRow(ctx, a.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}

	email, err := row.email()
	if err != nil {
		return nil, err
	}

	if err := a.db.SelectContext(ctx, &email.Attachments, `
		SELECT id, email_id, filename, mimetype, size,
		       COALESCE(content_id, '') AS content_id, COALESCE(disposition, '') AS disposition
		FROM attachments WHERE email_id = ? ORDER BY rowid`, id); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return email, nil
}

// UpdateEmail applies a partial flags update and returns the fresh metadata,
// or ErrNotFound.
func (a *Actor) UpdateEmail(ctx context.Context, id string, upd EmailUpdate) (*EmailMetadata, error) {
	var (
		sets []string
		args []any
	)
	if upd.Read != nil {
		sets = append(sets, `read = ?`)
		args = append(args, *upd.Read)
	}
	if upd.Starred != nil {
		sets = append(sets, `starred = ?`)
		args = append(args, *upd.Starred)
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := a.db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE emails SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
		if err != nil {
			return nil, fmt.Errorf("update email: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("update email: %w", err)
		} else if n == 0 {
			return nil, fmt.Errorf("email %q: %w", id, ErrNotFound)
		}
	}

	row, err := a.getEmailRow(ctx, a.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reload email: %w", err)
	}
	meta, err := row.metadata()
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// DeleteEmail removes the email and, via cascade, its attachment rows. It
// returns the descriptors of the removed attachments so the caller can purge
// their bytes from blob storage. A second delete returns ErrNotFound.
func (a *Actor) DeleteEmail(ctx context.Context, id string) ([]Attachment, error) {
	var attachments []Attachment
	err := a.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := a.requireEmailTx(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.SelectContext(ctx, &attachments, `
			SELECT id, email_id, filename, mimetype, size,
			       COALESCE(content_id, '') AS content_id, COALESCE(disposition, '') AS disposition
			FROM attachments WHERE email_id = ?`, id); err != nil {
			return fmt.Errorf("collect attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete email: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("email deleted",
		"mailbox_id", a.id, "email_id", id, "attachments", len(attachments))
	return attachments, nil
}

// MoveEmail moves an email into folderID. Returns ErrNotFound when either
// the email or the target folder does not exist. Moving into trash stamps
// trashed_at for the retention sweep (an existing stamp is preserved);
// moving out clears it.
func (a *Actor) MoveEmail(ctx context.Context, id, folderID string) error {
	return a.db.InTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := a.folderExists(ctx, tx, folderID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}

		var res sql.Result
		if folderID == FolderTrash {
			// COALESCE keeps the original stamp on a trash-to-trash move
			// so the retention clock never resets.
			res, err = tx.ExecContext(ctx,
				`UPDATE emails SET folder_id = ?, trashed_at = COALESCE(trashed_at, ?) WHERE id = ?`,
				folderID, formatDate(time.Now()), id)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE emails SET folder_id = ?, trashed_at = NULL WHERE id = ?`,
				folderID, id)
		}
		if err != nil {
			return fmt.Errorf("move email: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("move email: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("email %q: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (a *Actor) getEmailRow(ctx context.Context, q sqlx.QueryerContext, id string) (*emailRow, error) {
	var row emailRow
	err := sqlx.GetContext(ctx, q, &row,
		fmt.Sprintf(`SELECT %s FROM emails WHERE id = ?`, emailColumns), id)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (a *Actor) requireEmail(ctx context.Context, q sqlx.QueryerContext, id string) error {
	var one int
	err := sqlx.GetContext(ctx, q, &one, `SELECT 1 FROM emails WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOriginalNotFound
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}

func (a *Actor) requireEmailTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	var one int
	err := tx.GetContext(ctx, &one, `SELECT 1 FROM emails WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("email %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
