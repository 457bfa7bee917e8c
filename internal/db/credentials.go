package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/consolegal/crm/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoMailboxAssigned is returned when the user has no mailbox credential.
// This is terminal for a sync job: the user must ask an administrator to
// assign a mailbox.
var ErrNoMailboxAssigned = errors.New("no mailbox assigned")

// GetMailboxCredential returns the mailbox credential assigned to the user.
func GetMailboxCredential(ctx context.Context, pool *pgxpool.Pool, userID string) (*models.MailboxCredential, error) {
	var cred models.MailboxCredential

	err := pool.QueryRow(ctx, `
		SELECT user_id, email, encrypted_app_password, created_at, updated_at
		FROM mailbox_credentials
		WHERE user_id = $1
	`, userID).Scan(
		&cred.UserID,
		&cred.Email,
		&cred.EncryptedAppPassword,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoMailboxAssigned
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get mailbox credential: %w", err)
	}

	return &cred, nil
}

// SaveMailboxCredential assigns or replaces the user's mailbox credential.
func SaveMailboxCredential(ctx context.Context, pool *pgxpool.Pool, cred *models.MailboxCredential) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO mailbox_credentials (user_id, email, encrypted_app_password)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			encrypted_app_password = EXCLUDED.encrypted_app_password,
			updated_at = NOW()
	`, cred.UserID, cred.Email, cred.EncryptedAppPassword)

	if err != nil {
		return fmt.Errorf("failed to save mailbox credential: %w", err)
	}

	return nil
}
