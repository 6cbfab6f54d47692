package gateway

import (
	"net/http"

	"github.com/rbaliyan/webmail/mailbox"
)

type folderRequest struct {
	Name string `json:"name"`
}

func (g *Gateway) handleListFolders(w http.ResponseWriter, r *http.Request) {
	var folders []mailbox.Folder
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		folders, err = mb.Folders(r.Context())
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (g *Gateway) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	var folder *mailbox.Folder
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		folder, err = mb.CreateFolder(r.Context(), req.Name)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (g *Gateway) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	var folder *mailbox.Folder
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		folder, err = mb.RenameFolder(r.Context(), r.PathValue("id"), req.Name)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (g *Gateway) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		return mb.DeleteFolder(r.Context(), r.PathValue("id"))
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
