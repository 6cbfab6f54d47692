package gateway

import (
	"net/http"
	"time"

	"github.com/rbaliyan/webmail/mailbox"
)

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("query") == "" {
		g.writeError(w, r, http.StatusBadRequest, "Query is required")
		return
	}

	sq := mailbox.SearchQuery{
		Query:  q.Get("query"),
		Folder: q.Get("folder"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	}
	if v := q.Get("date_start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			g.writeError(w, r, http.StatusBadRequest, "Invalid date_start")
			return
		}
		sq.DateStart = t
	}
	if v := q.Get("date_end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			g.writeError(w, r, http.StatusBadRequest, "Invalid date_end")
			return
		}
		sq.DateEnd = t
	}

	var emails []mailbox.EmailMetadata
	err := g.svc.Mailbox(r.Context(), r.PathValue("mailboxId"), func(mb *mailbox.Actor) error {
		var err error
		emails, err = mb.Search(r.Context(), sq)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}
