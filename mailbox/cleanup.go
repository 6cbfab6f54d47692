package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PurgeResult describes one trash sweep.
type PurgeResult struct {
	// DeletedCount is the number of emails permanently deleted.
	DeletedCount int
	// Attachments are the descriptors of every attachment removed by the
	// sweep, for purging their bytes from blob storage.
	Attachments []Attachment
}

// PurgeTrash permanently deletes emails that were moved to trash before
// cutoff. Emails created directly in trash carry no trash timestamp and are
// never swept.
func (a *Actor) PurgeTrash(ctx context.Context, cutoff time.Time) (*PurgeResult, error) {
	result := &PurgeResult{}
	err := a.db.InTx(ctx, func(tx *sqlx.Tx) error {
		expired := `
			SELECT id FROM emails
			WHERE folder_id = ? AND trashed_at IS NOT NULL AND trashed_at < ?`

		if err := tx.SelectContext(ctx, &result.Attachments, `
			SELECT id, email_id, filename, mimetype, size,
			       COALESCE(content_id, '') AS content_id, COALESCE(disposition, '') AS disposition
			FROM attachments WHERE email_id IN (`+expired+`)`,
			FolderTrash, formatDate(cutoff)); err != nil {
			return fmt.Errorf("collect expired attachments: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM emails WHERE id IN (`+expired+`)`,
			FolderTrash, formatDate(cutoff))
		if err != nil {
			return fmt.Errorf("purge trash: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("purge trash: %w", err)
		}
		result.DeletedCount = int(n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.DeletedCount > 0 {
		a.logger.Debug("trash purged",
			"mailbox_id", a.id, "deleted", result.DeletedCount,
			"attachments", len(result.Attachments))
	}
	return result, nil
}
