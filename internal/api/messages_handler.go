package api

import (
	"log"
	"net/http"

	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/imap"
	"github.com/consolegal/crm/backend/internal/models"
	syncsvc "github.com/consolegal/crm/backend/internal/sync"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessagesHandler handles GET /api/v1/mail/messages.
type MessagesHandler struct {
	pool *pgxpool.Pool
}

// NewMessagesHandler creates a new MessagesHandler instance.
func NewMessagesHandler(pool *pgxpool.Pool) *MessagesHandler {
	return &MessagesHandler{pool: pool}
}

// GetMessages lists stored messages in the caller's partition for one folder,
// newest first. This reads the local mirror only; call sync first to refresh.
func (h *MessagesHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = syncsvc.DefaultFolder
	}
	folder = imap.CanonicalFolder(folder)
	limit := ParseLimitParam(r, syncsvc.DefaultLimit)

	var ownerID *string
	if _, err := uuid.Parse(userID); err == nil {
		ownerID = &userID
	}

	messages, err := db.GetMessagesForFolder(ctx, h.pool, ownerID, folder, limit)
	if err != nil {
		log.Printf("MessagesHandler: Failed to get messages: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if messages == nil {
		messages = []*models.StoredMessage{}
	}

	WriteJSONResponse(w, models.MessagesResponse{
		Messages: messages,
		Count:    len(messages),
	})
}
