package webmail

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/rbaliyan/webmail/mailbox"
	"github.com/rbaliyan/webmail/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// registry maps mailbox keys to live actor instances.
//
// Each key holds at most one actor, constructed lazily on first access.
// A per-key weighted semaphore of capacity one serializes every operation
// on that key, so two requests for the same mailbox never interleave even
// when one of them is suspended at blob or storage I/O. Distinct keys run
// fully concurrently.
//
// The registry assumes it is the only process opening these database
// files. Running two instances over one data directory is not supported.
type registry struct {
	dataDir string // empty means in-memory actors
	logger  *slog.Logger
	otel    *otelInstrumentation

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

type registryEntry struct {
	sem   *semaphore.Weighted
	actor *mailbox.Actor // nil until first use
}

func newRegistry(dataDir string, logger *slog.Logger, otel *otelInstrumentation) *registry {
	return &registry{
		dataDir: dataDir,
		logger:  logger,
		otel:    otel,
		entries: make(map[string]*registryEntry),
	}
}

// entry returns the registry entry for key, creating it if needed.
func (r *registry) entry(key string) (*registryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrNotConnected
	}
	e, ok := r.entries[key]
	if !ok {
		e = &registryEntry{sem: semaphore.NewWeighted(1)}
		r.entries[key] = e
	}
	return e, nil
}

// do runs fn against the actor for key, serialized with every other
// operation on the same key. The actor is opened on first use, which
// creates the database file and runs pending migrations.
func (r *registry) do(ctx context.Context, key string, fn func(*mailbox.Actor) error) error {
	if err := ValidateMailboxID(key); err != nil {
		return err
	}

	e, err := r.entry(key)
	if err != nil {
		return err
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire mailbox %s: %w", key, err)
	}
	defer e.sem.Release(1)

	actor, err := r.ensureActor(ctx, key, e)
	if err != nil {
		return err
	}
	return fn(actor)
}

// ensureActor opens the actor for e on first use. The caller holds e's
// semaphore. The closed flag is rechecked here: an operation that looked
// up its entry before shutdown but acquired the semaphore after the drain
// must not reopen the database.
func (r *registry) ensureActor(ctx context.Context, key string, e *registryEntry) (*mailbox.Actor, error) {
	if e.actor != nil {
		return e.actor, nil
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrNotConnected
	}

	actor, err := mailbox.Open(ctx, key, r.actorPath(key), r.logger)
	if err != nil {
		return nil, fmt.Errorf("open mailbox %s: %w", key, err)
	}
	e.actor = actor
	r.otel.recordActorOpen(ctx, "mailbox", 1)
	r.logger.Debug("mailbox actor opened", "mailbox_id", key)
	return actor, nil
}

// actorPath returns the database path for a mailbox key.
func (r *registry) actorPath(key string) string {
	if r.dataDir == "" {
		return store.MemoryPath
	}
	return filepath.Join(r.dataDir, "mailboxes", key+".db")
}

// close drains all actors concurrently. Each actor's semaphore is acquired
// first so in-flight operations finish before the database is closed.
func (r *registry) close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := make(map[string]*registryEntry, len(r.entries))
	for key, e := range r.entries {
		entries[key] = e
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for key, e := range entries {
		g.Go(func() error {
			if err := e.sem.Acquire(ctx, 1); err != nil {
				return fmt.Errorf("drain mailbox %s: %w", key, err)
			}
			defer e.sem.Release(1)
			if e.actor == nil {
				return nil
			}
			if err := e.actor.Close(); err != nil {
				return fmt.Errorf("close mailbox %s: %w", key, err)
			}
			e.actor = nil
			r.otel.recordActorOpen(ctx, "mailbox", -1)
			return nil
		})
	}
	return g.Wait()
}

// ValidateMailboxID returns ErrInvalidMailboxID when key is not usable as
// a mailbox identifier. Callers that accept ids from the outside can reject
// them before touching any storage.
func ValidateMailboxID(key string) error {
	if !isValidMailboxID(key) {
		return fmt.Errorf("%w: %q", ErrInvalidMailboxID, key)
	}
	return nil
}

// isValidMailboxID checks if a mailbox key is safe to use as a database
// file name. Valid keys are non-empty and contain only alphanumerics,
// hyphen, underscore, period and at-sign.
func isValidMailboxID(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == '@':
		default:
			return false
		}
	}
	return true
}
