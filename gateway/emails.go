package gateway

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/blob"
	"github.com/rbaliyan/webmail/mailbox"
)

type sendAttachment struct {
	Content     string `json:"content"` // base64 encoded
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	Disposition string `json:"disposition"`
	ContentID   string `json:"contentId"`
}

type sendEmailRequest struct {
	To          string           `json:"to"`
	From        string           `json:"from"`
	Subject     string           `json:"subject"`
	HTML        string           `json:"html"`
	Text        string           `json:"text"`
	Attachments []sendAttachment `json:"attachments"`

	// At most one of these may be set. InReplyTo threads the new email
	// under the original; ForwardOf validates the original but starts a
	// fresh thread.
	InReplyTo string `json:"inReplyTo"`
	ForwardOf string `json:"forwardOf"`
}

type sendEmailResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type updateEmailRequest struct {
	Read    *bool `json:"read"`
	Starred *bool `json:"starred"`
}

type moveEmailRequest struct {
	FolderID string `json:"folderId"`
}

func (g *Gateway) handleListEmails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := mailbox.ListOptions{
		Folder:        q.Get("folder"),
		SortColumn:    q.Get("sortColumn"),
		SortDirection: mailbox.SortOrder(q.Get("sortDirection")),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = limit
	}

	var emails []mailbox.EmailMetadata
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		emails, err = mb.Emails(r.Context(), opts)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}

// handleCreateEmail creates an email in the sent folder, storing attachment
// bytes in the blob store first so a failed insert leaves only orphaned
// blobs, never dangling rows.
func (g *Gateway) handleCreateEmail(w http.ResponseWriter, r *http.Request) {
	mailboxID := r.PathValue("mailboxId")

	var req sendEmailRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	if req.HTML == "" && req.Text == "" {
		g.writeError(w, r, http.StatusBadRequest, "Either 'html' or 'text' must be provided")
		return
	}
	if req.InReplyTo != "" && req.ForwardOf != "" {
		g.writeError(w, r, http.StatusBadRequest, "'inReplyTo' and 'forwardOf' are mutually exclusive")
		return
	}

	body := req.HTML
	if body == "" {
		body = req.Text
	}

	emailID := uuid.NewString()
	attachments := make([]mailbox.AttachmentData, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			g.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid attachment content: %s", att.Filename))
			return
		}
		attachmentID := uuid.NewString()
		key := blob.AttachmentKey(emailID, attachmentID, att.Filename)
		if err := g.svc.Blobs().Put(r.Context(), key, content); err != nil {
			g.writeDomainError(w, r, err)
			return
		}
		attachments = append(attachments, mailbox.AttachmentData{
			ID:          attachmentID,
			Filename:    att.Filename,
			Mimetype:    att.Type,
			Size:        int64(len(content)),
			ContentID:   att.ContentID,
			Disposition: att.Disposition,
		})
	}

	data := mailbox.EmailData{
		ID:        emailID,
		Subject:   req.Subject,
		Sender:    req.From,
		Recipient: req.To,
		Date:      time.Now().UTC(),
		Body:      body,
	}

	var err error
	switch {
	case req.InReplyTo != "":
		_, err = g.svc.CreateReply(r.Context(), mailboxID, req.InReplyTo, mailbox.FolderSent, data, attachments)
	case req.ForwardOf != "":
		_, err = g.svc.CreateForward(r.Context(), mailboxID, req.ForwardOf, mailbox.FolderSent, data, attachments)
	default:
		_, err = g.svc.CreateEmail(r.Context(), mailboxID, mailbox.FolderSent, data, attachments)
	}
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sendEmailResponse{ID: emailID, Status: "sent"})
}

func (g *Gateway) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	var email *mailbox.Email
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		email, err = mb.Email(r.Context(), r.PathValue("id"))
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

func (g *Gateway) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req updateEmailRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	var meta *mailbox.EmailMetadata
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		meta, err = mb.UpdateEmail(r.Context(), r.PathValue("id"), mailbox.EmailUpdate{
			Read:    req.Read,
			Starred: req.Starred,
		})
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (g *Gateway) handleDeleteEmail(w http.ResponseWriter, r *http.Request) {
	err := g.svc.DeleteEmail(r.Context(), r.PathValue("mailboxId"), r.PathValue("id"))
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleMoveEmail(w http.ResponseWriter, r *http.Request) {
	var req moveEmailRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		return mb.MoveEmail(r.Context(), r.PathValue("id"), req.FolderID)
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// handleGetAttachment resolves attachment metadata through the actor, then
// streams the bytes from the blob store.
func (g *Gateway) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	emailID := r.PathValue("emailId")
	attachmentID := r.PathValue("attachmentId")

	var att *mailbox.Attachment
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		att, err = mb.Attachment(r.Context(), attachmentID)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	if att.EmailID != emailID {
		g.writeError(w, r, http.StatusNotFound, "Attachment not found")
		return
	}

	data, err := g.svc.Blobs().Get(r.Context(), blob.AttachmentKey(emailID, attachmentID, att.Filename))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			g.writeError(w, r, http.StatusNotFound, "Attachment file not found")
			return
		}
		g.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", att.Mimetype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
