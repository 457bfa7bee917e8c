package sync

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/models"
)

const (
	draftsFolder = "Drafts"
	sentFolder   = "Sent"

	// draftSentWindow is how far apart a draft and a Sent message may be and
	// still count as the same logical send.
	draftSentWindow = 5 * time.Minute
)

// NormalizeSubject strips any leading run of Re:/Fwd:/Fw: markers, trims and
// case-folds the subject. Two messages with equal normalized subjects belong
// to the same conversation regardless of folder.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)

	for {
		lower := strings.ToLower(s)
		stripped := false
		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	return strings.ToLower(s)
}

// reconcileThreads recomputes conversation grouping across the owner's whole
// mailbox: every group keyed by normalized subject gets its size and the OR
// of its members' attachment flags. Full recomputation on every sync trades
// efficiency for correctness under concurrent edits.
func (s *Service) reconcileThreads(ctx context.Context, ownerID *string) error {
	messages, err := db.GetMessagesForOwner(ctx, s.pool, ownerID)
	if err != nil {
		return err
	}

	groups := make(map[string][]*models.StoredMessage)
	for _, msg := range messages {
		key := NormalizeSubject(msg.Subject)
		groups[key] = append(groups[key], msg)
	}

	for _, group := range groups {
		hasAttachments := false
		ids := make([]string, 0, len(group))
		for _, msg := range group {
			ids = append(ids, msg.ID)
			if msg.HasAttachments {
				hasAttachments = true
			}
		}

		if err := db.UpdateThreadStats(ctx, s.pool, ids, len(group), hasAttachments); err != nil {
			return err
		}
	}

	return nil
}

// cleanupDrafts deletes drafts whose send has already landed in the Sent
// folder: same normalized subject, timestamps within the window. First match
// wins; any match implies the same logical send.
func (s *Service) cleanupDrafts(ctx context.Context, ownerID *string) error {
	messages, err := db.GetMessagesForOwner(ctx, s.pool, ownerID)
	if err != nil {
		return err
	}

	var drafts, sent []*models.StoredMessage
	for _, msg := range messages {
		switch msg.Folder {
		case draftsFolder:
			drafts = append(drafts, msg)
		case sentFolder:
			sent = append(sent, msg)
		}
	}

	for _, draft := range drafts {
		key := NormalizeSubject(draft.Subject)
		for _, sentMsg := range sent {
			if NormalizeSubject(sentMsg.Subject) != key {
				continue
			}
			if !withinWindow(draft.Date, sentMsg.Date, draftSentWindow) {
				continue
			}

			if err := db.DeleteMessageByID(ctx, s.pool, draft.ID); err != nil {
				return err
			}
			log.Printf("Removed sent draft %s (matched %s in %s)", draft.MessageID, sentMsg.MessageID, sentFolder)
			break
		}
	}

	return nil
}

func withinWindow(a, b *time.Time, window time.Duration) bool {
	if a == nil || b == nil {
		return false
	}

	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

func joinReferences(references []string) string {
	return strings.Join(references, " ")
}
