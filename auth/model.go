package auth

import "time"

// Role is the access level a grant gives a user on a mailbox.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleWrite Role = "write"
	RoleRead  Role = "read"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleWrite, RoleRead:
		return true
	}
	return false
}

// User is an account. Password hashes never leave this package.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is a login session. Email and IsAdmin are read fresh from the user
// record at validation time, so an admin change takes effect on next use.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Grant links a user to a mailbox with a role.
type Grant struct {
	UserID    string `db:"user_id" json:"userId"`
	MailboxID string `db:"mailbox_id" json:"mailboxId"`
	Role      Role   `db:"role" json:"role"`
}

// UserUpdate is a partial update of a user. Nil fields are left unchanged.
type UserUpdate struct {
	Email    *string
	Password *string
	IsAdmin  *bool
}

// userRow is the sqlx scan target for the users table. Timestamps are stored
// as unix seconds.
type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	IsAdmin      bool   `db:"is_admin"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r *userRow) user() User {
	return User{
		ID:        r.ID,
		Email:     r.Email,
		IsAdmin:   r.IsAdmin,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(r.UpdatedAt, 0).UTC(),
	}
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

type sessionRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	ExpiresAt int64  `db:"expires_at"`
	CreatedAt int64  `db:"created_at"`
}
