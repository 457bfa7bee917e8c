package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/imap"
	"github.com/consolegal/crm/backend/internal/models"
	syncsvc "github.com/consolegal/crm/backend/internal/sync"
	ws "github.com/consolegal/crm/backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncHandler handles POST /api/v1/mail/sync.
type SyncHandler struct {
	pool   *pgxpool.Pool
	syncer syncsvc.Syncer
	hub    *ws.Hub
}

// NewSyncHandler creates a new SyncHandler instance.
func NewSyncHandler(pool *pgxpool.Pool, syncer syncsvc.Syncer, hub *ws.Hub) *SyncHandler {
	return &SyncHandler{
		pool:   pool,
		syncer: syncer,
		hub:    hub,
	}
}

// Sync triggers one sync job for the caller's assigned mailbox. Credential
// and fetch failures abort with a specific error; anything downstream of a
// successful fetch has already been handled best-effort by the service, so a
// response here always reflects at least the stored count.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	req := models.SyncRequest{Folder: syncsvc.DefaultFolder, Limit: syncsvc.DefaultLimit}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.syncer.Sync(ctx, userID, req.Folder, req.Limit)
	if err != nil {
		h.writeSyncError(w, userID, err)
		return
	}

	if h.hub != nil {
		h.hub.SendEvent(userID, &ws.SyncEvent{
			Type:           "sync_finished",
			Folder:         result.Folder,
			Count:          result.Count,
			ConnectedEmail: result.ConnectedEmail,
		})
	}

	WriteJSONResponse(w, models.SyncResponse{
		Success:        true,
		Count:          result.Count,
		ConnectedEmail: result.ConnectedEmail,
		Message:        fmt.Sprintf("Synced %d message(s) from %s", result.Count, result.Folder),
	})
}

func (h *SyncHandler) writeSyncError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, db.ErrNoMailboxAssigned):
		log.Printf("SyncHandler: No mailbox assigned to user %s", userID)
		WriteJSONError(w, http.StatusForbidden, "No mailbox assigned. Contact an administrator.")
	case errors.Is(err, imap.ErrAuthFailed):
		log.Printf("SyncHandler: Mailbox authentication failed for user %s: %v", userID, err)
		WriteJSONError(w, http.StatusUnauthorized, "Mailbox authentication failed. Check the app password.")
	default:
		log.Printf("SyncHandler: Sync failed for user %s: %v", userID, err)
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
