package gateway

import (
	"net/http"

	"github.com/rbaliyan/webmail/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"isAdmin"`
}

type grantRequest struct {
	UserID    string `json:"userId"`
	MailboxID string `json:"mailboxId"`
	Role      string `json:"role"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// handleRegister creates the first user as admin; afterwards open
// registration is closed.
func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	var user *auth.User
	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		var err error
		user, err = a.Register(r.Context(), req.Email, req.Password)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	session, err := g.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, session)
}

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		return a.Logout(r.Context(), token)
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// handleMe returns the validated session, including the user's grants.
func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var grants []auth.Grant
	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		var err error
		grants, err = a.Grants(r.Context(), session.UserID)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*auth.Session
		Grants []auth.Grant `json:"grants"`
	}{session, grants})
}

// handleAdminRegister creates a user regardless of the first-user rule.
// Admin-created users are not admins.
func (g *Gateway) handleAdminRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	var user *auth.User
	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		var err error
		user, err = a.RegisterByAdmin(r.Context(), req.Email, req.Password)
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (g *Gateway) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var users []auth.User
	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		var err error
		users, err = a.Users(r.Context())
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (g *Gateway) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	var user *auth.User
	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		var err error
		user, err = a.UpdateUser(r.Context(), r.PathValue("userId"), auth.UserUpdate{
			Email:    req.Email,
			Password: req.Password,
			IsAdmin:  req.IsAdmin,
		})
		return err
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (g *Gateway) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		return a.GrantAccess(r.Context(), req.UserID, req.MailboxID, auth.Role(req.Role))
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (g *Gateway) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	err := g.svc.Auth(r.Context(), func(a *auth.Actor) error {
		return a.RevokeAccess(r.Context(), req.UserID, req.MailboxID)
	})
	if err != nil {
		g.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
