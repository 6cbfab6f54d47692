package gateway

import (
	"net/http"
	"strconv"

	"github.com/rbaliyan/webmail/mailbox"
)

type createContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type updateContactRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (g *Gateway) handleListContacts(w http.ResponseWriter, r *http.Request) {
	var contacts []mailbox.Contact
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		contacts, err = mb.Contacts(r.Context())
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (g *Gateway) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req createContactRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		g.writeError(w, r, http.StatusBadRequest, "Email is required")
		return
	}

	var contact *mailbox.Contact
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		contact, err = mb.CreateContact(r.Context(), req.Name, req.Email)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

func (g *Gateway) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		g.writeError(w, r, http.StatusBadRequest, "Invalid contact id")
		return
	}

	var req updateContactRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	var contact *mailbox.Contact
	err = g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		contact, err = mb.UpdateContact(r.Context(), id, mailbox.ContactUpdate{
			Name:  req.Name,
			Email: req.Email,
		})
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (g *Gateway) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		g.writeError(w, r, http.StatusBadRequest, "Invalid contact id")
		return
	}

	err = g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		return mb.DeleteContact(r.Context(), id)
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
