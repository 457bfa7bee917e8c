package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/consolegal/crm/backend/internal/crypto"
	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/models"
	"github.com/consolegal/crm/backend/internal/smtp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SendHandler handles POST /api/v1/mail/send.
type SendHandler struct {
	pool        *pgxpool.Pool
	encryptor   *crypto.Encryptor
	smtpAddress string
}

// NewSendHandler creates a new SendHandler instance.
func NewSendHandler(pool *pgxpool.Pool, encryptor *crypto.Encryptor, smtpAddress string) *SendHandler {
	return &SendHandler{
		pool:        pool,
		encryptor:   encryptor,
		smtpAddress: smtpAddress,
	}
}

// Send submits a message over SMTP using the caller's mailbox credential and
// mirrors it into the local Sent folder, which is what draft cleanup matches
// against on the next sync.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.To) == "" {
		WriteJSONError(w, http.StatusBadRequest, "to is required")
		return
	}

	cred, err := db.GetMailboxCredential(ctx, h.pool, userID)
	if err != nil {
		if errors.Is(err, db.ErrNoMailboxAssigned) {
			WriteJSONError(w, http.StatusForbidden, "No mailbox assigned. Contact an administrator.")
			return
		}
		log.Printf("SendHandler: Failed to get mailbox credential: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	appPassword, err := h.encryptor.Decrypt(cred.EncryptedAppPassword)
	if err != nil {
		log.Printf("SendHandler: Failed to decrypt app password: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	now := time.Now()
	outgoing := &smtp.Message{
		From:    cred.Email,
		To:      splitAddresses(req.To),
		CC:      splitAddresses(req.CC),
		Subject: req.Subject,
		Body:    req.Body,
		Date:    now,
	}

	if err := smtp.Send(h.smtpAddress, cred.Email, appPassword, outgoing); err != nil {
		log.Printf("SendHandler: Failed to send mail for user %s: %v", userID, err)
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Mirror into the local Sent folder. Best-effort: the remote Sent copy is
	// picked up by the next sync either way.
	if err := h.storeSentCopy(r, userID, req, cred.Email, now); err != nil {
		log.Printf("Warning: Failed to store sent copy for user %s: %v", userID, err)
	}

	WriteJSONResponse(w, map[string]any{"success": true})
}

func (h *SendHandler) storeSentCopy(r *http.Request, userID string, req models.SendRequest, from string, sentAt time.Time) error {
	subject := req.Subject
	if subject == "" {
		subject = "(No Subject)"
	}

	var ownerID *string
	if _, err := uuid.Parse(userID); err == nil {
		ownerID = &userID
	}

	snippet := req.Body
	if runes := []rune(snippet); len(runes) > 200 {
		snippet = string(runes[:200])
	}

	msg := &models.StoredMessage{
		From:        from,
		To:          req.To,
		CC:          req.CC,
		Subject:     subject,
		Body:        req.Body,
		Date:        &sentAt,
		MessageID:   fmt.Sprintf("<%s@consolegal.crm>", uuid.NewString()),
		Snippet:     snippet,
		Folder:      "Sent",
		IsRead:      true,
		OwnerID:     ownerID,
		ThreadCount: 1,
	}

	return db.UpsertMessage(r.Context(), h.pool, msg)
}

func splitAddresses(raw string) []string {
	var addresses []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}
	return addresses
}
