package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/blob"
	"github.com/rbaliyan/webmail/mailbox"
)

type mailboxSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type mailboxDetails struct {
	mailboxSummary
	Settings json.RawMessage `json:"settings"`
}

type createMailboxRequest struct {
	ID       string          `json:"id"`
	Settings json.RawMessage `json:"settings"`
}

type updateMailboxRequest struct {
	Settings json.RawMessage `json:"settings"`
}

// handleListMailboxes derives the mailbox list from the settings documents
// in the blob store.
func (g *Gateway) handleListMailboxes(w http.ResponseWriter, r *http.Request) {
	keys, err := g.svc.Blobs().List(r.Context(), blob.SettingsPrefix())
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	mailboxes := make([]mailboxSummary, 0, len(keys))
	for _, key := range keys {
		id, ok := blob.MailboxIDFromSettingsKey(key)
		if !ok {
			continue
		}
		mailboxes = append(mailboxes, mailboxSummary{ID: id, Email: id, Name: id})
	}
	writeJSON(w, http.StatusOK, mailboxes)
}

// handleCreateMailbox provisions a mailbox: writes its settings document
// and warms the actor, which creates the database and seeds the system
// folders.
func (g *Gateway) handleCreateMailbox(w http.ResponseWriter, r *http.Request) {
	var req createMailboxRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	// Reject bad ids before the settings document is written, otherwise a
	// failed provisioning leaves a phantom mailbox in the listing.
	if err := webmail.ValidateMailboxID(req.ID); err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	settings := req.Settings
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}

	exists, err := g.svc.MailboxExists(r.Context(), req.ID)
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	if exists {
		g.writeError(w, r, http.StatusConflict, "Already exists")
		return
	}

	if err := g.svc.Blobs().Put(r.Context(), blob.SettingsKey(req.ID), settings); err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	err = g.svc.Mailbox(r.Context(), req.ID, func(mb *mailbox.Actor) error {
		_, err := mb.Folders(r.Context())
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mailboxDetails{
		mailboxSummary: mailboxSummary{ID: req.ID, Email: req.ID, Name: req.ID},
		Settings:       settings,
	})
}

func (g *Gateway) handleGetMailbox(w http.ResponseWriter, r *http.Request) {
	mailboxID := r.PathValue("mailboxId")
	settings, err := g.svc.Blobs().Get(r.Context(), blob.SettingsKey(mailboxID))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			g.writeError(w, r, http.StatusNotFound, "Not found")
			return
		}
		g.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mailboxDetails{
		mailboxSummary: mailboxSummary{ID: mailboxID, Email: mailboxID, Name: mailboxID},
		Settings:       settings,
	})
}

func (g *Gateway) handleUpdateMailbox(w http.ResponseWriter, r *http.Request) {
	mailboxID := r.PathValue("mailboxId")

	var req updateMailboxRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	key := blob.SettingsKey(mailboxID)
	exists, err := g.svc.Blobs().Head(r.Context(), key)
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	if !exists {
		g.writeError(w, r, http.StatusNotFound, "Not found")
		return
	}

	if err := g.svc.Blobs().Put(r.Context(), key, req.Settings); err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mailboxDetails{
		mailboxSummary: mailboxSummary{ID: mailboxID, Email: mailboxID, Name: mailboxID},
		Settings:       req.Settings,
	})
}

// handleDeleteMailbox removes the settings document, which unprovisions
// the mailbox as far as the gateway is concerned. The database file stays
// behind for operator cleanup.
func (g *Gateway) handleDeleteMailbox(w http.ResponseWriter, r *http.Request) {
	mailboxID := r.PathValue("mailboxId")
	key := blob.SettingsKey(mailboxID)

	exists, err := g.svc.Blobs().Head(r.Context(), key)
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	if !exists {
		g.writeError(w, r, http.StatusNotFound, "Not found")
		return
	}

	if err := g.svc.Blobs().Delete(r.Context(), key); err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
