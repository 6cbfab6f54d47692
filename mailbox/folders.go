package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rbaliyan/webmail/store"
)

// Folders returns all folders with their unread counts, system folders first
// in seed order, then custom folders by name.
func (a *Actor) Folders(ctx context.Context) ([]Folder, error) {
	const query = `
		SELECT f.id, f.name, f.is_deletable,
		       COALESCE(SUM(CASE WHEN e.read = 0 THEN 1 ELSE 0 END), 0) AS unread_count
		FROM folders f
		LEFT JOIN emails e ON e.folder_id = f.id
		GROUP BY f.id, f.name, f.is_deletable
		ORDER BY f.is_deletable, f.rowid
	`
	var folders []Folder
	if err := a.db.SelectContext(ctx, &folders, query); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// CreateFolder derives the folder id by slugifying name and inserts it.
// Returns ErrDuplicateEntry when the slug is already taken and
// ErrInvalidFolderName when the name slugifies to nothing.
func (a *Actor) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrInvalidFolderName
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO folders (id, name, is_deletable) VALUES (?, ?, 1)`, slug, name)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("folder %q: %w", slug, ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("create folder: %w", err)
	}

	a.logger.Debug("folder created", "mailbox_id", a.id, "folder_id", slug)
	return &Folder{ID: slug, Name: name, IsDeletable: true}, nil
}

// RenameFolder changes a folder's display name. The id (slug) is stable.
func (a *Actor) RenameFolder(ctx context.Context, id, name string) (*Folder, error) {
	res, err := a.db.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("folder name %q: %w", name, ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("rename folder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rename folder: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("folder %q: %w", id, ErrNotFound)
	}

	var f Folder
	if err := a.db.GetContext(ctx,
		&f, `SELECT id, name, is_deletable, 0 AS unread_count FROM folders WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("reload folder: %w", err)
	}
	return &f, nil
}

// DeleteFolder removes a deletable folder. System folders yield
// ErrSystemFolder. A deletable folder that still contains emails yields
// ErrFolderNotEmpty: callers must move or delete its contents first.
func (a *Actor) DeleteFolder(ctx context.Context, id string) error {
	err := a.db.InTx(ctx, func(tx *sqlx.Tx) error {
		var deletable bool
		err := tx.GetContext(ctx, &deletable, `SELECT is_deletable FROM folders WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("folder %q: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load folder: %w", err)
		}
		if !deletable {
			return ErrSystemFolder
		}

		var emails int
		if err := tx.GetContext(ctx, &emails,
			`SELECT COUNT(*) FROM emails WHERE folder_id = ?`, id); err != nil {
			return fmt.Errorf("count folder emails: %w", err)
		}
		if emails > 0 {
			return ErrFolderNotEmpty
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.Debug("folder deleted", "mailbox_id", a.id, "folder_id", id)
	return nil
}

// folderExists reports whether a folder id resolves, within tx when given.
func (a *Actor) folderExists(ctx context.Context, q sqlx.QueryerContext, id string) (bool, error) {
	var one int
	err := sqlx.GetContext(ctx, q, &one, `SELECT 1 FROM folders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check folder: %w", err)
	}
	return true, nil
}
