package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Attachment looks up attachment metadata by id. Retrieving the bytes is the
// blob store's responsibility.
func (a *Actor) Attachment(ctx context.Context, id string) (*Attachment, error) {
	var att Attachment
	err := a.db.GetContext(ctx, &att, `
		SELECT id, email_id, filename, mimetype, size,
		       COALESCE(content_id, '') AS content_id, COALESCE(disposition, '') AS disposition
		FROM attachments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &att, nil
}
