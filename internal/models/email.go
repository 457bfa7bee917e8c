package models

import "time"

// Attachment describes one attachment of a message. The full content is never
// stored; only the metadata needed by the CRM's mail views.
type Attachment struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// RemoteEnvelope is the transient, normalized form of one message as fetched
// from the remote mailbox. It is built fresh on every fetch and discarded once
// merged into the store.
type RemoteEnvelope struct {
	From           string
	To             string
	CC             string
	BCC            string
	Subject        string
	Body           string
	Date           time.Time
	MessageID      string
	InReplyTo      string
	References     []string
	Attachments    []Attachment
	HasAttachments bool
	IsRead         bool
}

// StoredMessage is the durable mirror of one remote message. message_id is
// globally unique and is the upsert conflict key.
type StoredMessage struct {
	ID                   string       `json:"id"`
	From                 string       `json:"from"`
	To                   string       `json:"to"`
	CC                   string       `json:"cc"`
	BCC                  string       `json:"bcc"`
	Subject              string       `json:"subject"`
	Body                 string       `json:"body"`
	Date                 *time.Time   `json:"date"`
	MessageID            string       `json:"message_id"`
	InReplyTo            *string      `json:"in_reply_to"`
	EmailReferences      *string      `json:"email_references"`
	Attachments          []Attachment `json:"attachments,omitempty"`
	HasAttachments       bool         `json:"has_attachments"`
	Snippet              string       `json:"snippet"`
	Folder               string       `json:"folder"`
	IsRead               bool         `json:"is_read"`
	OwnerID              *string      `json:"owner_id"`
	ThreadCount          int          `json:"thread_count"`
	ThreadHasAttachments bool         `json:"thread_has_attachments"`
	CreatedAt            time.Time    `json:"created_at"`
}

// MailboxCredential holds one user's mailbox connection secrets. Read-only to
// the sync core; assigned through the mailbox admin endpoint.
type MailboxCredential struct {
	UserID               string    `json:"user_id"`
	Email                string    `json:"email"`
	EncryptedAppPassword []byte    `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// SyncResult summarizes one completed sync job.
type SyncResult struct {
	Count          int    `json:"count"`
	ConnectedEmail string `json:"connectedEmail"`
	Folder         string `json:"folder"`
}
