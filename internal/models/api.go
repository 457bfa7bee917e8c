package models

// SyncRequest is the body of POST /api/v1/mail/sync.
type SyncRequest struct {
	Folder string `json:"folder"`
	Limit  int    `json:"limit"`
}

// SyncResponse is returned for a successful sync.
type SyncResponse struct {
	Success        bool   `json:"success"`
	Count          int    `json:"count"`
	ConnectedEmail string `json:"connectedEmail"`
	Message        string `json:"message"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendRequest is the body of POST /api/v1/mail/send.
type SendRequest struct {
	To      string `json:"to"`
	CC      string `json:"cc"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MessagesResponse is returned by GET /api/v1/mail/messages.
type MessagesResponse struct {
	Messages []*StoredMessage `json:"messages"`
	Count    int              `json:"count"`
}

// MailboxRequest assigns a mailbox credential to the caller.
type MailboxRequest struct {
	Email       string `json:"email"`
	AppPassword string `json:"app_password"`
}

// MailboxResponse describes the caller's assigned mailbox. The app password
// is never included.
type MailboxResponse struct {
	Email          string `json:"email"`
	AppPasswordSet bool   `json:"app_password_set"`
}
