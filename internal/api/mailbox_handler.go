package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/consolegal/crm/backend/internal/crypto"
	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MailboxHandler handles GET/POST /api/v1/mailbox: reading and assigning the
// caller's mailbox credential. The app password is write-only.
type MailboxHandler struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
}

// NewMailboxHandler creates a new MailboxHandler instance.
func NewMailboxHandler(pool *pgxpool.Pool, encryptor *crypto.Encryptor) *MailboxHandler {
	return &MailboxHandler{
		pool:      pool,
		encryptor: encryptor,
	}
}

// GetMailbox returns the caller's assigned mailbox, password masked.
func (h *MailboxHandler) GetMailbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	cred, err := db.GetMailboxCredential(ctx, h.pool, userID)
	if err != nil {
		if errors.Is(err, db.ErrNoMailboxAssigned) {
			WriteJSONError(w, http.StatusNotFound, "No mailbox assigned")
			return
		}
		log.Printf("MailboxHandler: Failed to get mailbox credential: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	WriteJSONResponse(w, models.MailboxResponse{
		Email:          cred.Email,
		AppPasswordSet: len(cred.EncryptedAppPassword) > 0,
	})
}

// PostMailbox assigns or replaces the caller's mailbox credential.
func (h *MailboxHandler) PostMailbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var req models.MailboxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.AppPassword == "" {
		WriteJSONError(w, http.StatusBadRequest, "email and app_password are required")
		return
	}

	encrypted, err := h.encryptor.Encrypt(req.AppPassword)
	if err != nil {
		log.Printf("MailboxHandler: Failed to encrypt app password: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	cred := &models.MailboxCredential{
		UserID:               userID,
		Email:                strings.TrimSpace(req.Email),
		EncryptedAppPassword: encrypted,
	}

	if err := db.SaveMailboxCredential(ctx, h.pool, cred); err != nil {
		log.Printf("MailboxHandler: Failed to save mailbox credential: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	WriteJSONResponse(w, models.MailboxResponse{
		Email:          cred.Email,
		AppPasswordSet: true,
	})
}
