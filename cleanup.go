package webmail

import (
	"context"
	"time"

	"github.com/rbaliyan/webmail/blob"
	"github.com/rbaliyan/webmail/mailbox"
	"github.com/rbaliyan/webmail/retry"
)

// CleanupTrashResult contains the result of a trash cleanup operation.
type CleanupTrashResult struct {
	// DeletedCount is the number of emails permanently deleted.
	DeletedCount int
}

// CleanupTrash permanently deletes emails that have been in a mailbox's
// trash longer than the configured retention period (default 30 days) and
// purges their attachment bytes from the blob store.
//
// Call it periodically from the application's own scheduler; the service
// does not run cleanup on its own.
func (s *Service) CleanupTrash(ctx context.Context, mailboxID string) (*CleanupTrashResult, error) {
	start := time.Now()
	cutoff := time.Now().UTC().Add(-s.opts.trashRetention)

	var result *mailbox.PurgeResult
	err := s.Mailbox(ctx, mailboxID, func(mb *mailbox.Actor) error {
		var err error
		result, err = mb.PurgeTrash(ctx, cutoff)
		return err
	})
	s.otel.recordOp(ctx, "mailbox.cleanup_trash", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if len(result.Attachments) > 0 {
		keys := make([]string, 0, len(result.Attachments))
		for _, att := range result.Attachments {
			keys = append(keys, blob.AttachmentKey(att.EmailID, att.ID, att.Filename))
		}
		if err := s.deleteBlobs(ctx, keys); err != nil {
			s.logger.Warn("failed to purge trashed attachment blobs",
				"mailbox_id", mailboxID, "keys", len(keys), "error", err)
		}
	}

	return &CleanupTrashResult{DeletedCount: result.DeletedCount}, nil
}

// deleteBlobs removes keys from the blob store, retrying transient
// failures. The rows referencing them are already gone, so a final failure
// leaves orphaned blobs, never dangling references.
func (s *Service) deleteBlobs(ctx context.Context, keys []string) error {
	return retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		return s.blobs.Delete(ctx, keys...)
	})
}
