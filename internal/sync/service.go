package sync

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/consolegal/crm/backend/internal/crypto"
	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/imap"
	"github.com/consolegal/crm/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultFolder is synced when the request names none.
	DefaultFolder = "INBOX"
	// DefaultLimit caps how many of the newest messages one job fetches.
	DefaultLimit = 50

	snippetLength  = 200
	defaultSubject = "(No Subject)"
)

// Fetcher retrieves the newest messages of one remote folder. Implemented by
// imap.LiveFetcher in production and by fakes in tests, so a sync job is a
// function of (credentials, collaborators) with no hidden globals.
type Fetcher interface {
	FetchFolder(ctx context.Context, username, password, folder string, limit int) (*imap.FetchResult, error)
}

// Syncer is the interface handlers depend on.
type Syncer interface {
	Sync(ctx context.Context, userID, folder string, limit int) (*models.SyncResult, error)
}

// Service runs the mailbox sync job: resolve credentials, fetch, upsert,
// reconcile deletions, reconcile threads and drafts. Only the first two
// stages are fatal; everything downstream of a successful fetch is
// best-effort and self-heals on the next run.
type Service struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
	fetcher   Fetcher
	userLocks sync.Map // userID -> *sync.Mutex
}

var _ Syncer = (*Service)(nil)

// NewService creates a sync service.
func NewService(pool *pgxpool.Pool, encryptor *crypto.Encryptor, fetcher Fetcher) *Service {
	return &Service{
		pool:      pool,
		encryptor: encryptor,
		fetcher:   fetcher,
	}
}

// Sync runs one sync job for the user's assigned mailbox. Concurrent jobs for
// the same user serialize on a per-user lock; deletion reconciliation racing
// itself is the one cross-stage hazard, and the lock removes it. Jobs for
// different users never contend.
func (s *Service) Sync(ctx context.Context, userID, folder string, limit int) (*models.SyncResult, error) {
	if folder == "" {
		folder = DefaultFolder
	}
	folder = imap.CanonicalFolder(folder)
	if limit <= 0 {
		limit = DefaultLimit
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	// Stage 1: credential resolution. Fatal on failure.
	cred, err := db.GetMailboxCredential(ctx, s.pool, userID)
	if err != nil {
		return nil, err
	}

	appPassword, err := s.encryptor.Decrypt(cred.EncryptedAppPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt app password: %w", err)
	}

	// Stage 2: remote fetch. Fatal on failure.
	result, err := s.fetcher.FetchFolder(ctx, cred.Email, appPassword, folder, limit)
	if err != nil {
		return nil, err
	}

	ownerID := resolveOwnerID(userID)

	// Stage 3: local upsert. Per-row failures are logged and counted, never
	// fatal to the batch.
	stored := 0
	for _, envelope := range result.Envelopes {
		msg := buildStoredMessage(envelope, folder, ownerID)
		if err := db.UpsertMessage(ctx, s.pool, msg); err != nil {
			log.Printf("Warning: Failed to store message %s: %v", msg.MessageID, err)
			continue
		}
		stored++
	}

	// Stage 4: deletion reconciliation. Best-effort.
	if err := s.reconcileDeletions(ctx, ownerID, folder, result); err != nil {
		log.Printf("Warning: Deletion reconciliation failed for folder %s: %v", folder, err)
	}

	// Stage 5: thread and draft reconciliation over the whole mailbox.
	// Both steps best-effort.
	if err := s.reconcileThreads(ctx, ownerID); err != nil {
		log.Printf("Warning: Thread reconciliation failed: %v", err)
	}
	if err := s.cleanupDrafts(ctx, ownerID); err != nil {
		log.Printf("Warning: Draft cleanup failed: %v", err)
	}

	return &models.SyncResult{
		Count:          stored,
		ConnectedEmail: cred.Email,
		Folder:         folder,
	}, nil
}

// reconcileDeletions removes local rows in the (folder, owner) partition that
// the remote no longer has. The fetched window is only authoritative when it
// covered the whole folder; for a capped fetch the stage is skipped, so
// messages older than the window are never wrongly deleted.
func (s *Service) reconcileDeletions(ctx context.Context, ownerID *string, folder string, result *imap.FetchResult) error {
	if !result.Complete {
		log.Printf("Skipping deletion reconciliation for folder %s: fetched window (%d) smaller than folder size (%d)",
			folder, len(result.Envelopes), result.Total)
		return nil
	}

	remote := make(map[string]struct{}, len(result.Envelopes))
	for _, envelope := range result.Envelopes {
		remote[envelope.MessageID] = struct{}{}
	}

	local, err := db.GetMessageIDsForFolder(ctx, s.pool, ownerID, folder)
	if err != nil {
		return err
	}

	var stale []string
	for _, id := range local {
		if _, found := remote[id]; !found {
			stale = append(stale, id)
		}
	}

	deleted, err := db.DeleteByMessageIDs(ctx, s.pool, ownerID, folder, stale)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("Removed %d message(s) no longer present in folder %s", deleted, folder)
	}

	return nil
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// resolveOwnerID returns the caller identity as an owner id only when it is
// UUID-shaped; anything else lands in the anonymous partition (NULL owner).
func resolveOwnerID(userID string) *string {
	if _, err := uuid.Parse(userID); err != nil {
		return nil
	}
	return &userID
}

// buildStoredMessage maps a fetched envelope onto the durable record shape.
// The folder stored is the canonical alias name, not the provider's resolved
// name, so Drafts/Sent lookups are uniform across providers and request
// spellings.
func buildStoredMessage(envelope *models.RemoteEnvelope, folder string, ownerID *string) *models.StoredMessage {
	subject := envelope.Subject
	if subject == "" {
		subject = defaultSubject
	}

	msg := &models.StoredMessage{
		From:           envelope.From,
		To:             envelope.To,
		CC:             envelope.CC,
		BCC:            envelope.BCC,
		Subject:        subject,
		Body:           envelope.Body,
		MessageID:      envelope.MessageID,
		Attachments:    envelope.Attachments,
		HasAttachments: envelope.HasAttachments,
		Snippet:        makeSnippet(envelope.Body),
		Folder:         folder,
		IsRead:         envelope.IsRead,
		OwnerID:        ownerID,
		ThreadCount:    1,
	}

	if !envelope.Date.IsZero() {
		date := envelope.Date
		msg.Date = &date
	}
	if envelope.InReplyTo != "" {
		inReplyTo := envelope.InReplyTo
		msg.InReplyTo = &inReplyTo
	}
	if len(envelope.References) > 0 {
		references := joinReferences(envelope.References)
		msg.EmailReferences = &references
	}

	return msg
}

func makeSnippet(body string) string {
	runes := []rune(body)
	if len(runes) <= snippetLength {
		return body
	}
	return string(runes[:snippetLength])
}
