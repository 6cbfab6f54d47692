package webmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/rbaliyan/webmail/auth"
	"github.com/rbaliyan/webmail/mailbox"
)

func TestConcurrency_DistinctMailboxes(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	const numMailboxes = 10
	const emailsPerMailbox = 5

	var wg sync.WaitGroup
	errs := make(chan error, numMailboxes*emailsPerMailbox)

	// Many mailboxes receiving email concurrently
	for i := 0; i < numMailboxes; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			mailboxID := fmt.Sprintf("user%d@example.com", n)

			for j := 0; j < emailsPerMailbox; j++ {
				_, err := svc.CreateEmail(ctx, mailboxID, mailbox.FolderInbox, mailbox.EmailData{
					Subject: fmt.Sprintf("message %d", j),
					Sender:  "sender@example.com",
					Body:    "concurrent test body",
				}, nil)
				if err != nil {
					errs <- err
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("create error: %v", err)
	}

	// Every mailbox must hold exactly its own emails
	for i := 0; i < numMailboxes; i++ {
		mailboxID := fmt.Sprintf("user%d@example.com", i)
		var got int
		err := svc.Mailbox(ctx, mailboxID, func(mb *mailbox.Actor) error {
			emails, err := mb.Emails(ctx, mailbox.ListOptions{})
			if err != nil {
				return err
			}
			got = len(emails)
			return nil
		})
		if err != nil {
			t.Fatalf("list %s: %v", mailboxID, err)
		}
		if got != emailsPerMailbox {
			t.Errorf("%s: expected %d emails, got %d", mailboxID, emailsPerMailbox, got)
		}
	}
}

func TestConcurrency_SameMailboxSerialized(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	const numWriters = 20

	// Each closure bumps shared counters without any locking of its own.
	// The registry serializes same-key operations, so the unguarded
	// increments are safe exactly when that holds.
	var inside, peak, total int

	var wg sync.WaitGroup
	errs := make(chan error, numWriters)

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := svc.Mailbox(ctx, "shared@example.com", func(mb *mailbox.Actor) error {
				inside++
				if inside > peak {
					peak = inside
				}
				_, err := mb.CreateEmail(ctx, mailbox.FolderInbox, mailbox.EmailData{
					Subject: fmt.Sprintf("write %d", n),
					Sender:  "sender@example.com",
				}, nil)
				total++
				inside--
				return err
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("write error: %v", err)
	}
	if peak != 1 {
		t.Errorf("expected at most 1 writer inside the actor, saw %d", peak)
	}
	if total != numWriters {
		t.Errorf("expected %d completed writes, got %d", numWriters, total)
	}

	var got int
	err := svc.Mailbox(ctx, "shared@example.com", func(mb *mailbox.Actor) error {
		emails, err := mb.Emails(ctx, mailbox.ListOptions{Limit: numWriters * 2})
		if err != nil {
			return err
		}
		got = len(emails)
		return nil
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got != numWriters {
		t.Errorf("expected %d emails, got %d", numWriters, got)
	}
}

func TestConcurrency_AuthSerialized(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	err := svc.Auth(ctx, func(a *auth.Actor) error {
		_, err := a.Register(ctx, "admin@example.com", "secret-password")
		return err
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	const numLogins = 10
	var wg sync.WaitGroup
	errs := make(chan error, numLogins)

	for i := 0; i < numLogins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Login(ctx, "admin@example.com", "secret-password"); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("login error: %v", err)
	}
}

func TestConcurrency_CloseDrainsInFlight(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- svc.Mailbox(ctx, "slow@example.com", func(mb *mailbox.Actor) error {
			close(started)
			<-release
			_, err := mb.CreateEmail(ctx, mailbox.FolderInbox, mailbox.EmailData{
				Subject: "late write",
				Sender:  "sender@example.com",
			}, nil)
			return err
		})
	}()

	<-started

	closed := make(chan error, 1)
	go func() { closed <- svc.Close(ctx) }()

	// Close must wait for the in-flight operation, not abort it.
	close(release)

	if err := <-done; err != nil {
		t.Errorf("in-flight operation failed: %v", err)
	}
	if err := <-closed; err != nil {
		t.Errorf("close failed: %v", err)
	}
}

// An operation can look up its registry entry before shutdown starts and
// only reach the semaphore after the drain finished. It must not reopen
// the database then.
func TestRegistryNoReopenAfterClose(t *testing.T) {
	ctx := context.Background()

	otelInstr, err := newOtelInstrumentation(newOptions())
	if err != nil {
		t.Fatalf("otel: %v", err)
	}
	r := newRegistry("", slog.Default(), otelInstr)

	e, err := r.entry("late@example.com")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}

	if err := r.close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer e.sem.Release(1)

	if _, err := r.ensureActor(ctx, "late@example.com", e); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if e.actor != nil {
		t.Error("actor opened after shutdown")
	}
}
