package mailbox

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// System folder ids seeded by the initial migration. They are always present
// and can never be deleted or renamed away.
const (
	FolderInbox   = "inbox"
	FolderSent    = "sent"
	FolderTrash   = "trash"
	FolderArchive = "archive"
	FolderSpam    = "spam"
)

// SortOrder is the direction for email listing.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Attachment disposition values.
const (
	DispositionAttachment = "attachment"
	DispositionInline     = "inline"
)

// Folder is a mail folder. UnreadCount is computed at list time.
type Folder struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	IsDeletable bool   `db:"is_deletable" json:"isDeletable"`
	UnreadCount int64  `db:"unread_count" json:"unreadCount"`
}

// EmailMetadata is the listing projection of an email: everything except the
// body, threading fields and attachments.
type EmailMetadata struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	Subject   string    `json:"subject"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Date      time.Time `json:"date"`
	Read      bool      `json:"read"`
	Starred   bool      `json:"starred"`
}

// Email is a full email record including threading fields and attachments.
//
// Threading invariants:
//   - a reply's ThreadID equals its parent's ThreadID (or the parent's own
//     id when the parent started the thread);
//   - a reply's References is the parent's References plus the parent's id,
//     in order, without duplicates;
//   - a forward starts a fresh thread: no InReplyTo, no References,
//     ThreadID equal to its own id.
type Email struct {
	EmailMetadata
	Body        string       `json:"body"`
	InReplyTo   string       `json:"inReplyTo,omitempty"`
	ThreadID    string       `json:"threadId"`
	References  []string     `json:"references,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is attachment metadata. The bytes themselves live in the
// external blob store keyed by (emailId, attachmentId, filename).
type Attachment struct {
	ID          string `db:"id" json:"id"`
	EmailID     string `db:"email_id" json:"emailId"`
	Filename    string `db:"filename" json:"filename"`
	Mimetype    string `db:"mimetype" json:"mimetype"`
	Size        int64  `db:"size" json:"size"`
	ContentID   string `db:"content_id" json:"contentId,omitempty"`
	Disposition string `db:"disposition" json:"disposition"`
}

// Contact is an address-book entry. Email is unique per mailbox.
type Contact struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name,omitempty"`
	Email string `db:"email" json:"email"`
}

// EmailData carries the caller-supplied fields for creating an email.
// ID is assigned by the actor when empty. Date defaults to now.
type EmailData struct {
	ID        string
	Subject   string
	Sender    string
	Recipient string
	Date      time.Time
	Body      string
}

// AttachmentData describes one attachment row to create alongside an email.
// ID is assigned by the actor when empty.
type AttachmentData struct {
	ID          string
	Filename    string
	Mimetype    string
	Size        int64
	ContentID   string
	Disposition string
}

// EmailUpdate is a partial update of an email's flags. Nil fields are left
// unchanged.
type EmailUpdate struct {
	Read    *bool
	Starred *bool
}

// ContactUpdate is a partial update of a contact. Nil fields are left
// unchanged.
type ContactUpdate struct {
	Name  *string
	Email *string
}

// ListOptions controls pagination and ordering of email listings.
type ListOptions struct {
	// Folder restricts the listing to one folder. Empty lists all folders.
	Folder string
	// Page is 1-based. Values below 1 mean the first page.
	Page int
	// Limit is the page size. Values below 1 use the default.
	Limit int
	// SortColumn must be one of: date, subject, sender, recipient, read,
	// starred. Empty means date.
	SortColumn string
	// SortDirection defaults to SortDesc.
	SortDirection SortOrder
}

// SearchQuery describes an email search: a case-insensitive substring match
// over subject, sender, recipient and body, optionally scoped by folder,
// sender/recipient and date range. Results are ordered by date descending.
type SearchQuery struct {
	Query     string
	Folder    string
	From      string
	To        string
	DateStart time.Time
	DateEnd   time.Time
}

// emailRow is the sqlx scan target for the emails table.
type emailRow struct {
	ID         string         `db:"id"`
	FolderID   string         `db:"folder_id"`
	Subject    string         `db:"subject"`
	Sender     string         `db:"sender"`
	Recipient  string         `db:"recipient"`
	Date       string         `db:"date"`
	Read       bool           `db:"read"`
	Starred    bool           `db:"starred"`
	Body       sql.NullString `db:"body"`
	InReplyTo  sql.NullString `db:"in_reply_to"`
	ThreadID   sql.NullString `db:"thread_id"`
	References sql.NullString `db:"email_references"`
}

func (r *emailRow) metadata() (EmailMetadata, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return EmailMetadata{}, err
	}
	return EmailMetadata{
		ID:        r.ID,
		FolderID:  r.FolderID,
		Subject:   r.Subject,
		Sender:    r.Sender,
		Recipient: r.Recipient,
		Date:      date,
		Read:      r.Read,
		Starred:   r.Starred,
	}, nil
}

func (r *emailRow) email() (*Email, error) {
	meta, err := r.metadata()
	if err != nil {
		return nil, err
	}
	e := &Email{
		EmailMetadata: meta,
		Body:          r.Body.String,
		InReplyTo:     r.InReplyTo.String,
		ThreadID:      r.ThreadID.String,
	}
	if r.References.Valid && r.References.String != "" {
		if err := json.Unmarshal([]byte(r.References.String), &e.References); err != nil {
			return nil, fmt.Errorf("decode references for email %s: %w", r.ID, err)
		}
	}
	return e, nil
}

// Dates are stored as RFC 3339 UTC text. Lexicographic order on the column
// then matches chronological order, which the listing and search queries
// depend on.
func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t, nil
}

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9-]+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify derives a folder id from its display name: lowercase, spaces to
// hyphens, everything else stripped, runs of hyphens collapsed.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
