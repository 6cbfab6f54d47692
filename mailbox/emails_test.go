package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"
)

func mustCreate(t *testing.T, a *Actor, folder string, data EmailData) *Email {
	t.Helper()
	email, err := a.CreateEmail(context.Background(), folder, data, nil)
	if err != nil {
		t.Fatalf("create email: %v", err)
	}
	return email
}

func TestCreateEmail(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	t.Run("StartsOwnThread", func(t *testing.T) {
		email := mustCreate(t, a, FolderInbox, EmailData{
			Subject: "hello", Sender: "a@example.com", Recipient: "b@example.com",
		})
		if email.ThreadID != email.ID {
			t.Errorf("thread id %s, want own id %s", email.ThreadID, email.ID)
		}
		if email.InReplyTo != "" || len(email.References) != 0 {
			t.Errorf("fresh email must have no reply linkage: %+v", email)
		}
	})

	t.Run("UnknownFolder", func(t *testing.T) {
		_, err := a.CreateEmail(ctx, "missing", EmailData{Subject: "x"}, nil)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("WithAttachments", func(t *testing.T) {
		email, err := a.CreateEmail(ctx, FolderInbox, EmailData{Subject: "att"},
			[]AttachmentData{
				{Filename: "a.pdf", Mimetype: "application/pdf", Size: 3, Disposition: DispositionAttachment},
				{Filename: "b.png", Mimetype: "image/png", Size: 5, ContentID: "cid-1", Disposition: DispositionInline},
			})
		if err != nil {
			t.Fatalf("create email: %v", err)
		}
		if len(email.Attachments) != 2 {
			t.Fatalf("expected 2 attachments, got %d", len(email.Attachments))
		}

		got, err := a.Email(ctx, email.ID)
		if err != nil {
			t.Fatalf("get email: %v", err)
		}
		if len(got.Attachments) != 2 {
			t.Fatalf("reload: expected 2 attachments, got %d", len(got.Attachments))
		}
		if got.Attachments[1].ContentID != "cid-1" {
			t.Errorf("content id lost: %+v", got.Attachments[1])
		}
	})
}

func TestReplyThreading(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	root := mustCreate(t, a, FolderInbox, EmailData{Subject: "root"})

	// Build a chain root <- r1 <- r2 <- r3 and check the invariants at
	// every level: threadId stays the root, references collect every
	// ancestor in order.
	parent := root
	want := []string{}
	for i := 1; i <= 3; i++ {
		want = append(want, parent.ID)
		reply, err := a.CreateReply(ctx, parent.ID, FolderInbox, EmailData{
			Subject: fmt.Sprintf("re %d", i),
		}, nil)
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		if reply.ThreadID != root.ID {
			t.Errorf("reply %d: thread id %s, want root %s", i, reply.ThreadID, root.ID)
		}
		if reply.InReplyTo != parent.ID {
			t.Errorf("reply %d: in_reply_to %s, want %s", i, reply.InReplyTo, parent.ID)
		}
		if len(reply.References) != len(want) {
			t.Fatalf("reply %d: references %v, want %v", i, reply.References, want)
		}
		for j, id := range want {
			if reply.References[j] != id {
				t.Errorf("reply %d: references[%d] = %s, want %s", i, j, reply.References[j], id)
			}
		}

		// The threading fields must survive a reload.
		got, err := a.Email(ctx, reply.ID)
		if err != nil {
			t.Fatalf("reload reply %d: %v", i, err)
		}
		if got.ThreadID != root.ID || got.InReplyTo != parent.ID {
			t.Errorf("reply %d reload: got thread %s reply-to %s", i, got.ThreadID, got.InReplyTo)
		}
		parent = got
	}
}

func TestReplyToMissingOriginal(t *testing.T) {
	a := newTestActor(t)
	_, err := a.CreateReply(context.Background(), "missing", FolderInbox, EmailData{Subject: "re"}, nil)
	if !errors.Is(err, ErrOriginalNotFound) {
		t.Fatalf("expected ErrOriginalNotFound, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ErrOriginalNotFound must match ErrNotFound, got %v", err)
	}
}

func TestForward(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	root := mustCreate(t, a, FolderInbox, EmailData{Subject: "root"})
	reply, err := a.CreateReply(ctx, root.ID, FolderInbox, EmailData{Subject: "re"}, nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	fwd, err := a.CreateForward(ctx, reply.ID, FolderSent, EmailData{Subject: "fwd"}, nil)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if fwd.ThreadID != fwd.ID {
		t.Errorf("forward must start a fresh thread, got %s", fwd.ThreadID)
	}
	if fwd.InReplyTo != "" || len(fwd.References) != 0 {
		t.Errorf("forward must carry no reply linkage: %+v", fwd)
	}

	if _, err := a.CreateForward(ctx, "missing", FolderSent, EmailData{Subject: "fwd"}, nil); !errors.Is(err, ErrOriginalNotFound) {
		t.Fatalf("expected ErrOriginalNotFound, got %v", err)
	}
}

func TestEmailsListing(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustCreate(t, a, FolderInbox, EmailData{
			Subject: fmt.Sprintf("mail %d", i),
			Date:    base.Add(time.Duration(i) * time.Hour),
		})
	}
	mustCreate(t, a, FolderSent, EmailData{Subject: "other folder", Date: base})

	t.Run("DefaultOrderIsDateDesc", func(t *testing.T) {
		emails, err := a.Emails(ctx, ListOptions{Folder: FolderInbox})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(emails) != 5 {
			t.Fatalf("expected 5 emails, got %d", len(emails))
		}
		for i := 1; i < len(emails); i++ {
			if emails[i].Date.After(emails[i-1].Date) {
				t.Errorf("not sorted descending at %d", i)
			}
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page1, err := a.Emails(ctx, ListOptions{Folder: FolderInbox, Page: 1, Limit: 2})
		if err != nil {
			t.Fatalf("page 1: %v", err)
		}
		page3, err := a.Emails(ctx, ListOptions{Folder: FolderInbox, Page: 3, Limit: 2})
		if err != nil {
			t.Fatalf("page 3: %v", err)
		}
		if len(page1) != 2 || len(page3) != 1 {
			t.Fatalf("page sizes: %d, %d", len(page1), len(page3))
		}
	})

	t.Run("SortAscending", func(t *testing.T) {
		emails, err := a.Emails(ctx, ListOptions{
			Folder: FolderInbox, SortColumn: "date", SortDirection: SortAsc,
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for i := 1; i < len(emails); i++ {
			if emails[i].Date.Before(emails[i-1].Date) {
				t.Errorf("not sorted ascending at %d", i)
			}
		}
	})

	t.Run("SortColumnAllowlist", func(t *testing.T) {
		_, err := a.Emails(ctx, ListOptions{SortColumn: "date; DROP TABLE emails"})
		if !errors.Is(err, ErrInvalidSort) {
			t.Fatalf("expected ErrInvalidSort, got %v", err)
		}
	})

	t.Run("AllFolders", func(t *testing.T) {
		emails, err := a.Emails(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(emails) != 6 {
			t.Fatalf("expected 6 emails across folders, got %d", len(emails))
		}
	})
}

func TestUpdateEmail(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	email := mustCreate(t, a, FolderInbox, EmailData{Subject: "flags"})

	read := true
	meta, err := a.UpdateEmail(ctx, email.ID, EmailUpdate{Read: &read})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !meta.Read || meta.Starred {
		t.Errorf("partial update touched the wrong flags: %+v", meta)
	}

	starred := true
	meta, err = a.UpdateEmail(ctx, email.ID, EmailUpdate{Starred: &starred})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !meta.Read || !meta.Starred {
		t.Errorf("starred update reset read: %+v", meta)
	}

	if _, err := a.UpdateEmail(ctx, "missing", EmailUpdate{Read: &read}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEmail(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	email, err := a.CreateEmail(ctx, FolderInbox, EmailData{Subject: "bye"},
		[]AttachmentData{{Filename: "gone.txt", Mimetype: "text/plain", Size: 4}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	attachments, err := a.DeleteEmail(ctx, email.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(attachments) != 1 || attachments[0].Filename != "gone.txt" {
		t.Fatalf("expected the purge descriptors, got %+v", attachments)
	}

	if _, err := a.Email(ctx, email.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("email still readable after delete: %v", err)
	}
	// Attachment rows cascade with the email.
	if _, err := a.Attachment(ctx, attachments[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attachment row survived the cascade: %v", err)
	}

	if _, err := a.DeleteEmail(ctx, email.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMoveEmail(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	email := mustCreate(t, a, FolderInbox, EmailData{Subject: "move me"})

	if err := a.MoveEmail(ctx, email.ID, FolderArchive); err != nil {
		t.Fatalf("move: %v", err)
	}
	got, err := a.Email(ctx, email.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FolderID != FolderArchive {
		t.Errorf("folder %s, want %s", got.FolderID, FolderArchive)
	}

	if err := a.MoveEmail(ctx, email.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("move to missing folder: expected ErrNotFound, got %v", err)
	}
	if err := a.MoveEmail(ctx, "missing", FolderInbox); !errors.Is(err, ErrNotFound) {
		t.Fatalf("move missing email: expected ErrNotFound, got %v", err)
	}
}

func TestMoveEmailTrashStamp(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	email := mustCreate(t, a, FolderInbox, EmailData{Subject: "doomed"})

	trashedAt := func() sql.NullString {
		t.Helper()
		var v sql.NullString
		if err := a.db.GetContext(ctx, &v,
			`SELECT trashed_at FROM emails WHERE id = ?`, email.ID); err != nil {
			t.Fatalf("read trashed_at: %v", err)
		}
		return v
	}

	if err := a.MoveEmail(ctx, email.ID, FolderTrash); err != nil {
		t.Fatalf("move to trash: %v", err)
	}
	first := trashedAt()
	if !first.Valid {
		t.Fatal("trashed_at not stamped on move to trash")
	}

	// A repeated move to trash must not reset the retention clock.
	time.Sleep(1100 * time.Millisecond)
	if err := a.MoveEmail(ctx, email.ID, FolderTrash); err != nil {
		t.Fatalf("second move to trash: %v", err)
	}
	if got := trashedAt(); got.String != first.String {
		t.Errorf("trashed_at restamped: %s, want %s", got.String, first.String)
	}

	if err := a.MoveEmail(ctx, email.ID, FolderInbox); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := trashedAt(); got.Valid {
		t.Errorf("trashed_at not cleared on restore, got %s", got.String)
	}
}
