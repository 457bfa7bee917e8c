package imap

import (
	"fmt"
	"log"

	"github.com/consolegal/crm/backend/internal/models"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// FetchResult is the outcome of one folder fetch. Complete reports whether
// the window covered the whole folder; deletion reconciliation must not run
// against a partial window.
type FetchResult struct {
	Envelopes []*models.RemoteEnvelope
	Total     uint32
	Complete  bool
}

// FetchRecent selects the folder read-only and retrieves the newest
// min(limit, folder size) messages with envelope, flags, body structure and
// full body. Bodies are parsed synchronously while draining the fetch stream,
// so the result is final when this returns; there is no settling delay. A
// single message that fails to parse keeps its header data and is logged,
// never failing the batch.
func FetchRecent(c *client.Client, folder string, limit uint32) (*FetchResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mbox, err := c.Select(folder, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	if mbox.Messages == 0 {
		return &FetchResult{Envelopes: []*models.RemoteEnvelope{}, Total: 0, Complete: true}, nil
	}

	from := uint32(1)
	if mbox.Messages > limit {
		from = mbox.Messages - limit + 1
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	// Peek so a sync never marks remote messages as read.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchBodyStructure,
		imap.FetchFlags,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, limit)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var envelopes []*models.RemoteEnvelope
	for msg := range messages {
		envelope, err := ParseEnvelope(msg, section)
		if err != nil {
			log.Printf("Warning: Failed to parse message seq %d in folder %s: %v", msg.SeqNum, folder, err)
		}
		if envelope != nil {
			envelopes = append(envelopes, envelope)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return &FetchResult{
		Envelopes: envelopes,
		Total:     mbox.Messages,
		Complete:  mbox.Messages <= limit,
	}, nil
}
