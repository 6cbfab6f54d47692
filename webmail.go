package webmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"github.com/rbaliyan/webmail/auth"
	"github.com/rbaliyan/webmail/blob"
	"github.com/rbaliyan/webmail/mailbox"
	"github.com/rbaliyan/webmail/store"
	"golang.org/x/sync/semaphore"
)

// Connection states for the service.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// Service is the webmail backend. It owns the mailbox actor registry, the
// singleton auth actor, the blob store and the domain event bus.
//
// Every mailbox operation runs through Mailbox() or one of the typed
// helpers, which serialize access per mailbox key. Auth operations run
// through Auth(), serialized the same way.
type Service struct {
	opts   *options
	logger *slog.Logger
	blobs  blob.Store
	otel   *otelInstrumentation

	state int32 // stateDisconnected, stateConnecting, or stateConnected

	mailboxes *registry

	authSem   *semaphore.Weighted
	authActor *auth.Actor

	eventBus *event.Bus
	events   *ServiceEvents
}

// New creates a webmail service. Call Connect() to open the auth store and
// initialize the event bus.
func New(opts ...Option) (*Service, error) {
	o := newOptions(opts...)

	if o.blobs == nil {
		return nil, ErrBlobStoreRequired
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	s := &Service{
		opts:    o,
		logger:  o.logger,
		blobs:   o.blobs,
		otel:    otelInstr,
		authSem: semaphore.NewWeighted(1),
	}
	s.mailboxes = newRegistry(o.dataDir, o.logger, otelInstr)
	return s, nil
}

// IsConnected returns true if the service is connected and ready.
func (s *Service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Events returns per-service event instances for subscribing and publishing.
func (s *Service) Events() *ServiceEvents {
	return s.events
}

// Blobs returns the configured blob store.
func (s *Service) Blobs() blob.Store {
	return s.blobs
}

// Connect opens the auth store, runs its migrations and initializes the
// event bus. Mailbox actors are opened lazily on first access.
func (s *Service) Connect(ctx context.Context) error {
	// Three-state transition keeps callers from seeing partial
	// initialization: stateDisconnected -> stateConnecting -> stateConnected.
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	authActor, err := auth.Open(ctx, s.authPath(), s.opts.sessionTTL, s.logger)
	if err != nil {
		return fmt.Errorf("open auth actor: %w", err)
	}
	s.authActor = authActor
	s.otel.recordActorOpen(ctx, "auth", 1)

	if err := s.initEventBus(ctx); err != nil {
		s.authActor.Close()
		s.authActor = nil
		return fmt.Errorf("init event bus: %w", err)
	}

	success = true
	s.logger.Info("webmail service connected", "data_dir", s.opts.dataDir)
	return nil
}

// authPath returns the auth database path.
func (s *Service) authPath() string {
	if s.opts.dataDir == "" {
		return store.MemoryPath
	}
	return filepath.Join(s.opts.dataDir, "auth.db")
}

// busCounter generates unique suffixes for event bus names.
var busCounter int64

// initEventBus initializes the event bus for this service.
// Each service creates its own bus and its own event instances, so multiple
// services in one process route events independently.
func (s *Service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "webmail"
	}
	// Each bus needs a unique name, so append a counter suffix
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	return nil
}

// Close drains all actors and shuts the service down. In-flight operations
// get up to the configured shutdown timeout to finish.
func (s *Service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer cancel()

	var errs []error

	if err := s.mailboxes.close(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("close mailbox actors: %w", err))
	}

	// Drain the auth actor the same way: acquire its slot, then close.
	if err := s.authSem.Acquire(shutdownCtx, 1); err != nil {
		errs = append(errs, fmt.Errorf("drain auth actor: %w", err))
	} else {
		if err := s.authActor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close auth actor: %w", err))
		}
		s.authActor = nil
		s.otel.recordActorOpen(ctx, "auth", -1)
		s.authSem.Release(1)
	}

	// Close the event bus only when a real transport is attached. The noop
	// transport holds no resources.
	if s.eventBus != nil && (s.opts.eventTransport != nil || s.opts.redisClient != nil) {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	s.logger.Info("webmail service closed")
	return errors.Join(errs...)
}

// Mailbox runs fn against the actor for mailboxID. Operations on one
// mailbox never interleave; distinct mailboxes run concurrently. The actor
// and its database are created on first access.
func (s *Service) Mailbox(ctx context.Context, mailboxID string, fn func(*mailbox.Actor) error) error {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return ErrNotConnected
	}

	ctx, end := s.otel.startSpan(ctx, "webmail.Mailbox")
	err := s.mailboxes.do(ctx, mailboxID, fn)
	end(err)
	return err
}

// Auth runs fn against the singleton auth actor, serialized with every
// other auth operation.
func (s *Service) Auth(ctx context.Context, fn func(*auth.Actor) error) error {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return ErrNotConnected
	}

	ctx, end := s.otel.startSpan(ctx, "webmail.Auth")
	if err := s.authSem.Acquire(ctx, 1); err != nil {
		end(err)
		return fmt.Errorf("acquire auth actor: %w", err)
	}
	err := fn(s.authActor)
	s.authSem.Release(1)
	end(err)
	return err
}

// publish sends ev best-effort. Failures are reported to the configured
// callback and counted, never returned to the caller.
func publish[T any](ctx context.Context, s *Service, ev event.Event[T], name string, payload T) {
	if err := ev.Publish(ctx, payload); err != nil {
		s.otel.recordEventPublishError(ctx, name)
		s.opts.safeEventPublishFailure(name, err)
	}
}

// CreateEmail creates an email in a mailbox folder and publishes
// EmailReceived.
func (s *Service) CreateEmail(ctx context.Context, mailboxID, folderID string, data mailbox.EmailData, attachments []mailbox.AttachmentData) (*mailbox.Email, error) {
	start := time.Now()
	var email *mailbox.Email
	err := s.Mailbox(ctx, mailboxID, func(mb *mailbox.Actor) error {
		var err error
		email, err = mb.CreateEmail(ctx, folderID, data, attachments)
		return err
	})
	s.otel.recordOp(ctx, "mailbox.create_email", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.publishEmailReceived(ctx, mailboxID, email)
	return email, nil
}

// CreateReply creates a reply to originalID and publishes EmailReceived.
func (s *Service) CreateReply(ctx context.Context, mailboxID, originalID, folderID string, data mailbox.EmailData, attachments []mailbox.AttachmentData) (*mailbox.Email, error) {
	start := time.Now()
	var email *mailbox.Email
	err := s.Mailbox(ctx, mailboxID, func(mb *mailbox.Actor) error {
		var err error
		email, err = mb.CreateReply(ctx, originalID, folderID, data, attachments)
		return err
	})
	s.otel.recordOp(ctx, "mailbox.create_reply", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.publishEmailReceived(ctx, mailboxID, email)
	return email, nil
}

// CreateForward creates a forward of originalID and publishes EmailReceived.
func (s *Service) CreateForward(ctx context.Context, mailboxID, originalID, folderID string, data mailbox.EmailData, attachments []mailbox.AttachmentData) (*mailbox.Email, error) {
	start := time.Now()
	var email *mailbox.Email
	err := s.Mailbox(ctx, mailboxID, func(mb *mailbox.Actor) error {
		var err error
		email, err = mb.CreateForward(ctx, originalID, folderID, data, attachments)
		return err
	})
	s.otel.recordOp(ctx, "mailbox.create_forward", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.publishEmailReceived(ctx, mailboxID, email)
	return email, nil
}

func (s *Service) publishEmailReceived(ctx context.Context, mailboxID string, email *mailbox.Email) {
	publish(ctx, s, s.events.EmailReceived, "EmailReceived", EmailReceivedEvent{
		MailboxID: mailboxID,
		EmailID:   email.ID,
		FolderID:  email.FolderID,
		ThreadID:  email.ThreadID,
		Subject:   email.Subject,
		Sender:    email.Sender,
		Date:      email.Date,
	})
}

// DeleteEmail permanently deletes an email, purges its attachment bytes
// from the blob store and publishes EmailDeleted. A dangling blob purge is
// logged but does not fail the deletion; the rows are already gone.
func (s *Service) DeleteEmail(ctx context.Context, mailboxID, emailID string) error {
	start := time.Now()
	var attachments []mailbox.Attachment
	err := s.Mailbox(ctx, mailboxID, func(mb *mailbox.Actor) error {
		var err error
		attachments, err = mb.DeleteEmail(ctx, emailID)
		return err
	})
	s.otel.recordOp(ctx, "mailbox.delete_email", time.Since(start), err)
	if err != nil {
		return err
	}

	if len(attachments) > 0 {
		keys := make([]string, 0, len(attachments))
		for _, att := range attachments {
			keys = append(keys, blob.AttachmentKey(att.EmailID, att.ID, att.Filename))
		}
		if err := s.deleteBlobs(ctx, keys); err != nil {
			s.logger.Warn("failed to purge attachment blobs",
				"mailbox_id", mailboxID, "email_id", emailID, "error", err)
		}
	}

	publish(ctx, s, s.events.EmailDeleted, "EmailDeleted", EmailDeletedEvent{
		MailboxID: mailboxID,
		EmailID:   emailID,
		DeletedAt: time.Now().UTC(),
	})
	return nil
}

// Login authenticates a user, creates a session and publishes
// SessionCreated.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	start := time.Now()
	var session *auth.Session
	err := s.Auth(ctx, func(a *auth.Actor) error {
		var err error
		session, err = a.Login(ctx, email, password)
		return err
	})
	s.otel.recordOp(ctx, "auth.login", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	publish(ctx, s, s.events.SessionCreated, "SessionCreated", SessionCreatedEvent{
		UserID:    session.UserID,
		Email:     session.Email,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	return session, nil
}

// MailboxExists reports whether a mailbox has been provisioned, by the
// presence of its settings document in the blob store.
func (s *Service) MailboxExists(ctx context.Context, mailboxID string) (bool, error) {
	if !isValidMailboxID(mailboxID) {
		return false, nil
	}
	return s.blobs.Head(ctx, blob.SettingsKey(mailboxID))
}
