package webmail

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for webmail events.
const (
	EventNameEmailReceived  = "webmail.email.received"
	EventNameEmailDeleted   = "webmail.email.deleted"
	EventNameSessionCreated = "webmail.session.created"
)

// EmailReceivedEvent is published when an email lands in a mailbox,
// whether created directly, as a reply or as a forward.
type EmailReceivedEvent struct {
	MailboxID string    `json:"mailbox_id"`
	EmailID   string    `json:"email_id"`
	FolderID  string    `json:"folder_id"`
	ThreadID  string    `json:"thread_id"`
	Subject   string    `json:"subject"`
	Sender    string    `json:"sender"`
	Date      time.Time `json:"date"`
}

// EmailDeletedEvent is published when an email is permanently deleted,
// after its attachment blobs have been purged.
type EmailDeletedEvent struct {
	MailboxID string    `json:"mailbox_id"`
	EmailID   string    `json:"email_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// SessionCreatedEvent is published on successful login.
type SessionCreatedEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ServiceEvents provides access to per-service event instances.
// Each service creates its own events bound to its own event bus,
// enabling independent event routing and parallel testing.
//
// Subscribe to events:
//
//	svc.Events().EmailReceived.Subscribe(ctx, handler)
//	svc.Events().EmailDeleted.Subscribe(ctx, handler)
//	svc.Events().SessionCreated.Subscribe(ctx, handler)
type ServiceEvents struct {
	// EmailReceived is published when an email lands in a mailbox.
	EmailReceived event.Event[EmailReceivedEvent]

	// EmailDeleted is published when an email is permanently deleted.
	EmailDeleted event.Event[EmailDeletedEvent]

	// SessionCreated is published on successful login.
	SessionCreated event.Event[SessionCreatedEvent]
}

// newServiceEvents creates per-service event instances with a unique name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		EmailReceived:  event.New[EmailReceivedEvent](namePrefix + "." + EventNameEmailReceived),
		EmailDeleted:   event.New[EmailDeletedEvent](namePrefix + "." + EventNameEmailDeleted),
		SessionCreated: event.New[SessionCreatedEvent](namePrefix + "." + EventNameSessionCreated),
	}
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.EmailReceived); err != nil {
		return fmt.Errorf("register EmailReceived: %w", err)
	}
	if err := event.Register(ctx, bus, events.EmailDeleted); err != nil {
		return fmt.Errorf("register EmailDeleted: %w", err)
	}
	if err := event.Register(ctx, bus, events.SessionCreated); err != nil {
		return fmt.Errorf("register SessionCreated: %w", err)
	}
	return nil
}
