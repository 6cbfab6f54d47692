// Package gateway exposes the webmail service over HTTP.
//
// It owns session extraction, the public/protected/admin route split, the
// mailbox-existence check in front of every mailbox route, and the mapping
// from domain errors to HTTP statuses. It never leaks raw storage errors
// to clients.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/auth"
)

type ctxKey int

const sessionKey ctxKey = iota

// Gateway routes HTTP requests to the webmail service.
type Gateway struct {
	svc    *webmail.Service
	logger *slog.Logger
}

// Option configures the gateway.
type Option func(*Gateway)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a gateway over svc.
func New(svc *webmail.Service, opts ...Option) *Gateway {
	g := &Gateway{
		svc:    svc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the HTTP handler with all routes registered.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/register", g.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", g.handleLogin)
	mux.HandleFunc("GET /api/docs", g.handleDocs)

	// Session routes
	mux.Handle("POST /api/v1/auth/logout", g.requireSession(g.handleLogout))
	mux.Handle("GET /api/v1/auth/me", g.requireSession(g.handleMe))

	// Admin routes
	mux.Handle("POST /api/v1/auth/admin/register", g.requireAdmin(g.handleAdminRegister))
	mux.Handle("GET /api/v1/auth/admin/users", g.requireAdmin(g.handleListUsers))
	mux.Handle("PUT /api/v1/auth/admin/users/{userId}", g.requireAdmin(g.handleUpdateUser))
	mux.Handle("POST /api/v1/auth/admin/grant-access", g.requireAdmin(g.handleGrantAccess))
	mux.Handle("POST /api/v1/auth/admin/revoke-access", g.requireAdmin(g.handleRevokeAccess))

	// Mailbox provisioning and settings
	mux.Handle("GET /api/v1/mailboxes", g.requireSession(g.handleListMailboxes))
	mux.Handle("POST /api/v1/mailboxes", g.requireAdmin(g.handleCreateMailbox))
	mux.Handle("GET /api/v1/mailboxes/{mailboxId}", g.requireSession(g.handleGetMailbox))
	mux.Handle("PUT /api/v1/mailboxes/{mailboxId}", g.requireSession(g.handleUpdateMailbox))
	mux.Handle("DELETE /api/v1/mailboxes/{mailboxId}", g.requireAdmin(g.handleDeleteMailbox))

	// Emails
	mux.Handle("GET /api/v1/mailboxes/{mailboxId}/emails", g.mailboxRoute(g.handleListEmails))
	mux.Handle("POST /api/v1/mailboxes/{mailboxId}/emails", g.mailboxRoute(g.handleCreateEmail))
	mux.Handle("GET /api/v1/mailboxes/{mailboxId}/emails/{id}", g.mailboxRoute(g.handleGetEmail))
	mux.Handle("PUT /api/v1/mailboxes/{mailboxId}/emails/{id}", g.mailboxRoute(g.handleUpdateEmail))
	mux.Handle("DELETE /api/v1/mailboxes/{mailboxId}/emails/{id}", g.mailboxRoute(g.handleDeleteEmail))
	mux.Handle("POST /api/v1/mailboxes/{mailboxId}/emails/{id}/move", g.mailboxRoute(g.handleMoveEmail))
	mux.Handle("GET /api/v1/mailboxes/{mailboxId}/emails/{emailId}/attachments/{attachmentId}",
		g.mailboxRoute(g.handleGetAttachment))

	// Folders
	mux.Handle("GET /api/v1/mailboxes/{mailboxId}/folders", g.mailboxRoute(g.handleListFolders))
	mux.Handle("POST /api/v1/mailboxes/{mailboxId}/folders", g.mailboxRoute(g.handleCreateFolder))
	mux.Handle("PUT /api/v1/mailboxes/{mailboxId}/folders/{id}", g.mailboxRoute(g.handleRenameFolder))
	mux.Handle("DELETE /api/v1/mailboxes/{mailboxId}/folders/{id}", g.mailboxRoute(g.handleDeleteFolder))

	// Contacts
	mux.Handle("GET /api/v1/mailboxes/{mailboxId}/contacts", g.mailboxRoute(g.handleListContacts))
	mux.Handle("POST /api/v1/mailboxes/{mailboxId}/contacts", g.mailboxRoute(g.handleCreateContact))
	mux.Handle("PUT /api/v1/mailboxes/{mailboxId}/contacts/{id}", g.mailboxRoute(g.handleUpdateContact))
	mux.Handle("DELETE /api/v1/mailboxes/{mailboxId}/contacts/{id}", g.mailboxRoute(g.handleDeleteContact))

	// Search
	mux.Handle("GET /api/v1/mailboxes/{mailboxId}/search", g.mailboxRoute(g.handleSearch))

	return mux
}

// sessionToken extracts the session token from the Authorization header or
// the session cookie. Returns "" when neither is present.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("session"); err == nil {
		return c.Value
	}
	return ""
}

// requireSession validates the session token and stores the session in the
// request context. Requests without a valid session get 401.
func (g *Gateway) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			g.writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var session *auth.Session
		err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
			var err error
			session, err = a.ValidateSession(r.Context(), token)
			return err
		})
		if err != nil {
			g.writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next(w, r.WithContext(ctx))
	})
}

// requireAdmin is requireSession plus an admin check. Non-admin sessions
// get 403.
func (g *Gateway) requireAdmin(next http.HandlerFunc) http.Handler {
	return g.requireSession(func(w http.ResponseWriter, r *http.Request) {
		if s := sessionFrom(r.Context()); s == nil || !s.IsAdmin {
			g.writeError(w, r, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}

// mailboxRoute is requireSession plus the mailbox-existence check: the
// mailbox settings document must exist in the blob store before the
// request reaches an actor. Missing mailboxes get 404.
func (g *Gateway) mailboxRoute(next http.HandlerFunc) http.Handler {
	return g.requireSession(func(w http.ResponseWriter, r *http.Request) {
		mailboxID := r.PathValue("mailboxId")
		ok, err := g.svc.MailboxExists(r.Context(), mailboxID)
		if err != nil {
			g.writeDomainError(w, r, err)
			return
		}
		if !ok {
			g.writeError(w, r, http.StatusNotFound, "Not found")
			return
		}
		next(w, r)
	})
}

// sessionFrom returns the validated session stored by requireSession.
func sessionFrom(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey).(*auth.Session)
	return s
}

// handleDocs serves a minimal API index.
func (g *Gateway) handleDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "webmail",
		"version": "v1",
		"auth":    "/api/v1/auth",
		"mail":    "/api/v1/mailboxes",
	})
}
