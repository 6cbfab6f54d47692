package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/auth"
	"github.com/rbaliyan/webmail/mailbox"
	"github.com/rbaliyan/webmail/store"
)

// errorBody is the JSON error envelope: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= 500 {
		g.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps a domain error to an HTTP status and body. Raw
// storage errors never reach the client: anything unrecognized becomes a
// generic 500 with the detail logged.
func (g *Gateway) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mailbox.ErrOriginalNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Original email not found"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	case errors.Is(err, store.ErrDuplicateEntry):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid credentials"})
	case errors.Is(err, auth.ErrInvalidSession):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
	case errors.Is(err, auth.ErrRegistrationClosed):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Registration is closed"})
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, mailbox.ErrSystemFolder),
		errors.Is(err, mailbox.ErrFolderNotEmpty),
		errors.Is(err, mailbox.ErrInvalidFolderName),
		errors.Is(err, mailbox.ErrInvalidSort),
		errors.Is(err, webmail.ErrInvalidMailboxID):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		g.logger.Error("internal error",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

// decodeBody decodes a JSON request body into v. Returns false after
// writing a 400 when the body is malformed.
func (g *Gateway) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		g.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
