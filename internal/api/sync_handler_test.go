package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/consolegal/crm/backend/internal/api"
	"github.com/consolegal/crm/backend/internal/auth"
	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/imap"
	"github.com/consolegal/crm/backend/internal/models"
	"github.com/consolegal/crm/backend/internal/testutil"
	ws "github.com/consolegal/crm/backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSyncer records the last sync call and serves a canned result or error.
type fakeSyncer struct {
	result *models.SyncResult
	err    error

	lastUserID string
	lastFolder string
	lastLimit  int
}

func (f *fakeSyncer) Sync(_ context.Context, userID, folder string, limit int) (*models.SyncResult, error) {
	f.lastUserID = userID
	f.lastFolder = folder
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func authedRequest(method, target string, body []byte, email string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.UserEmailKey, email)
	return req.WithContext(ctx)
}

func newSyncHandler(pool *pgxpool.Pool, syncer *fakeSyncer) *api.SyncHandler {
	return api.NewSyncHandler(pool, syncer, ws.NewHub(10))
}

func TestSyncHandler(t *testing.T) {
	pool := testutil.NewTestDB(t)

	t.Run("successful sync with defaults", func(t *testing.T) {
		syncer := &fakeSyncer{result: &models.SyncResult{
			Count:          3,
			ConnectedEmail: "mailbox@example.com",
			Folder:         "INBOX",
		}}
		handler := newSyncHandler(pool, syncer)

		req := authedRequest(http.MethodPost, "/api/v1/mail/sync", nil, "agent@example.com")
		rec := httptest.NewRecorder()
		handler.Sync(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.SyncResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 3, resp.Count)
		assert.Equal(t, "mailbox@example.com", resp.ConnectedEmail)
		assert.Contains(t, resp.Message, "Synced 3 message(s)")

		assert.Equal(t, "INBOX", syncer.lastFolder)
		assert.Equal(t, 50, syncer.lastLimit)
		assert.NotEmpty(t, syncer.lastUserID)
	})

	t.Run("folder and limit from request body", func(t *testing.T) {
		syncer := &fakeSyncer{result: &models.SyncResult{Folder: "Sent"}}
		handler := newSyncHandler(pool, syncer)

		body, _ := json.Marshal(models.SyncRequest{Folder: "Sent", Limit: 10})
		req := authedRequest(http.MethodPost, "/api/v1/mail/sync", body, "agent@example.com")
		rec := httptest.NewRecorder()
		handler.Sync(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Sent", syncer.lastFolder)
		assert.Equal(t, 10, syncer.lastLimit)
	})

	t.Run("no mailbox assigned returns 403", func(t *testing.T) {
		syncer := &fakeSyncer{err: db.ErrNoMailboxAssigned}
		handler := newSyncHandler(pool, syncer)

		req := authedRequest(http.MethodPost, "/api/v1/mail/sync", nil, "agent@example.com")
		rec := httptest.NewRecorder()
		handler.Sync(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)

		var resp models.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Error, "No mailbox assigned")
	})

	t.Run("mailbox auth failure returns 401", func(t *testing.T) {
		syncer := &fakeSyncer{err: fmt.Errorf("login: %w", imap.ErrAuthFailed)}
		handler := newSyncHandler(pool, syncer)

		req := authedRequest(http.MethodPost, "/api/v1/mail/sync", nil, "agent@example.com")
		rec := httptest.NewRecorder()
		handler.Sync(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp models.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Error, "authentication failed")
	})

	t.Run("other failures return 500", func(t *testing.T) {
		syncer := &fakeSyncer{err: fmt.Errorf("connection refused")}
		handler := newSyncHandler(pool, syncer)

		req := authedRequest(http.MethodPost, "/api/v1/mail/sync", nil, "agent@example.com")
		rec := httptest.NewRecorder()
		handler.Sync(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("invalid body returns 400", func(t *testing.T) {
		syncer := &fakeSyncer{result: &models.SyncResult{}}
		handler := newSyncHandler(pool, syncer)

		req := authedRequest(http.MethodPost, "/api/v1/mail/sync", []byte("{not json"), "agent@example.com")
		rec := httptest.NewRecorder()
		handler.Sync(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		syncer := &fakeSyncer{result: &models.SyncResult{}}
		handler := newSyncHandler(pool, syncer)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/mail/sync", nil)
		rec := httptest.NewRecorder()
		handler.Sync(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
