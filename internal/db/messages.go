package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/consolegal/crm/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMessageNotFound is returned when a requested message cannot be found.
var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `
	id,
	from_address,
	to_addresses,
	cc_addresses,
	bcc_addresses,
	subject,
	body,
	date,
	message_id,
	in_reply_to,
	email_references,
	attachments,
	has_attachments,
	snippet,
	folder,
	is_read,
	owner_id,
	thread_count,
	thread_has_attachments,
	created_at`

// UpsertMessage inserts or overwrites a message keyed by its globally unique
// message_id. On conflict every field is replaced, not merged, so corrections
// to attachment detection or folder moves are reflected on re-sync.
func UpsertMessage(ctx context.Context, pool *pgxpool.Pool, msg *models.StoredMessage) error {
	attachmentsJSON, err := encodeAttachments(msg.Attachments)
	if err != nil {
		return err
	}

	var id string
	err = pool.QueryRow(ctx, `
		INSERT INTO messages (
			from_address,
			to_addresses,
			cc_addresses,
			bcc_addresses,
			subject,
			body,
			date,
			message_id,
			in_reply_to,
			email_references,
			attachments,
			has_attachments,
			snippet,
			folder,
			is_read,
			owner_id,
			thread_count,
			thread_has_attachments
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (message_id) DO UPDATE SET
			from_address = EXCLUDED.from_address,
			to_addresses = EXCLUDED.to_addresses,
			cc_addresses = EXCLUDED.cc_addresses,
			bcc_addresses = EXCLUDED.bcc_addresses,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			date = EXCLUDED.date,
			in_reply_to = EXCLUDED.in_reply_to,
			email_references = EXCLUDED.email_references,
			attachments = EXCLUDED.attachments,
			has_attachments = EXCLUDED.has_attachments,
			snippet = EXCLUDED.snippet,
			folder = EXCLUDED.folder,
			is_read = EXCLUDED.is_read,
			owner_id = EXCLUDED.owner_id,
			thread_count = EXCLUDED.thread_count,
			thread_has_attachments = EXCLUDED.thread_has_attachments
		RETURNING id
	`,
		msg.From,
		msg.To,
		msg.CC,
		msg.BCC,
		msg.Subject,
		msg.Body,
		msg.Date,
		msg.MessageID,
		msg.InReplyTo,
		msg.EmailReferences,
		attachmentsJSON,
		msg.HasAttachments,
		msg.Snippet,
		msg.Folder,
		msg.IsRead,
		msg.OwnerID,
		msg.ThreadCount,
		msg.ThreadHasAttachments,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessageIDsForFolder returns the message_id values stored for the given
// (folder, owner) partition. A nil ownerID selects the anonymous partition.
func GetMessageIDsForFolder(ctx context.Context, pool *pgxpool.Pool, ownerID *string, folder string) ([]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT message_id
		FROM messages
		WHERE folder = $1 AND owner_id IS NOT DISTINCT FROM $2
	`, folder, ownerID)

	if err != nil {
		return nil, fmt.Errorf("failed to get message ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message ids: %w", err)
	}

	return ids, nil
}

// DeleteByMessageIDs removes the given message_ids from the (folder, owner)
// partition. Returns the number of rows deleted.
func DeleteByMessageIDs(ctx context.Context, pool *pgxpool.Pool, ownerID *string, folder string, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	tag, err := pool.Exec(ctx, `
		DELETE FROM messages
		WHERE folder = $1 AND owner_id IS NOT DISTINCT FROM $2 AND message_id = ANY($3)
	`, folder, ownerID, messageIDs)

	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteMessageByID removes a single message by its database id.
func DeleteMessageByID(ctx context.Context, pool *pgxpool.Pool, id string) error {
	if _, err := pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// GetMessagesForOwner returns every stored message in the owner's partition,
// across all folders. Used by thread reconciliation, which is mailbox-wide.
func GetMessagesForOwner(ctx context.Context, pool *pgxpool.Pool, ownerID *string) ([]*models.StoredMessage, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE owner_id IS NOT DISTINCT FROM $1
		ORDER BY date DESC NULLS LAST
	`, ownerID)

	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetMessagesForFolder returns up to limit messages in the (folder, owner)
// partition, newest first.
func GetMessagesForFolder(ctx context.Context, pool *pgxpool.Pool, ownerID *string, folder string, limit int) ([]*models.StoredMessage, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE folder = $1 AND owner_id IS NOT DISTINCT FROM $2
		ORDER BY date DESC NULLS LAST
		LIMIT $3
	`, folder, ownerID, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetMessageByMessageID returns one message by its unique message_id.
func GetMessageByMessageID(ctx context.Context, pool *pgxpool.Pool, messageID string) (*models.StoredMessage, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE message_id = $1
	`, messageID)

	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrMessageNotFound
	}
	return messages[0], nil
}

// UpdateThreadStats sets thread_count and thread_has_attachments on every
// message in the given id list in one statement.
func UpdateThreadStats(ctx context.Context, pool *pgxpool.Pool, ids []string, threadCount int, threadHasAttachments bool) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := pool.Exec(ctx, `
		UPDATE messages
		SET thread_count = $1, thread_has_attachments = $2
		WHERE id = ANY($3)
	`, threadCount, threadHasAttachments, ids)

	if err != nil {
		return fmt.Errorf("failed to update thread stats: %w", err)
	}

	return nil
}

func encodeAttachments(attachments []models.Attachment) (*string, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	encoded, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachments: %w", err)
	}

	s := string(encoded)
	return &s, nil
}

func scanMessages(rows pgx.Rows) ([]*models.StoredMessage, error) {
	var messages []*models.StoredMessage

	for rows.Next() {
		var msg models.StoredMessage
		var attachmentsJSON *string

		if err := rows.Scan(
			&msg.ID,
			&msg.From,
			&msg.To,
			&msg.CC,
			&msg.BCC,
			&msg.Subject,
			&msg.Body,
			&msg.Date,
			&msg.MessageID,
			&msg.InReplyTo,
			&msg.EmailReferences,
			&attachmentsJSON,
			&msg.HasAttachments,
			&msg.Snippet,
			&msg.Folder,
			&msg.IsRead,
			&msg.OwnerID,
			&msg.ThreadCount,
			&msg.ThreadHasAttachments,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if attachmentsJSON != nil {
			if err := json.Unmarshal([]byte(*attachmentsJSON), &msg.Attachments); err != nil {
				return nil, fmt.Errorf("failed to decode attachments: %w", err)
			}
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
