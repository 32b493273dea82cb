package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/shared"
)

// SourceTokenRepository persists provider credentials within one
// transaction. One row exists per (user, app, source) key.
type SourceTokenRepository struct {
	tx *sql.Tx
}

// GetByUser retrieves the token record for a (user, app, source) key.
func (r *SourceTokenRepository) GetByUser(userID, appBundle string, source models.Source) (*models.SourceToken, error) {
	query := `
		SELECT user_id, app_bundle, source, token_data, created_at, updated_at
		FROM source_tokens
		WHERE user_id = ? AND app_bundle = ? AND source = ?
	`

	var (
		token models.SourceToken
		src   string
	)

	err := r.tx.QueryRow(query, userID, appBundle, source.String()).Scan(
		&token.UserID,
		&token.AppBundle,
		&src,
		&token.TokenData,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: source token for %s/%s/%s", shared.ErrNotFound, userID, appBundle, source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan source token: %w", err)
	}

	token.Source = models.Source(src)
	return &token, nil
}

// Upsert creates the token record or replaces its blob when the key already
// exists. Last write wins; no history is kept.
func (r *SourceTokenRepository) Upsert(token *models.SourceToken) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO source_tokens (id, user_id, app_bundle, source, token_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, app_bundle, source)
		DO UPDATE SET token_data = excluded.token_data, updated_at = excluded.updated_at
	`

	_, err := r.tx.Exec(query,
		shared.GenerateID(),
		token.UserID,
		token.AppBundle,
		token.Source.String(),
		token.TokenData,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert source token: %w", mapSQLiteError(err))
	}

	return nil
}

// UpdateByUser overwrites the blob of an existing record.
func (r *SourceTokenRepository) UpdateByUser(userID, appBundle string, source models.Source, tokenData string) error {
	query := `
		UPDATE source_tokens
		SET token_data = ?, updated_at = ?
		WHERE user_id = ? AND app_bundle = ? AND source = ?
	`

	res, err := r.tx.Exec(query, tokenData, time.Now().UTC(), userID, appBundle, source.String())
	if err != nil {
		return fmt.Errorf("failed to update source token: %w", mapSQLiteError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: source token for %s/%s/%s", shared.ErrNotFound, userID, appBundle, source)
	}

	return nil
}

// CountByUser returns the number of rows for a (user, app, source) key.
// Used by tests to assert the uniqueness invariant.
func (r *SourceTokenRepository) CountByUser(userID, appBundle string, source models.Source) (int, error) {
	var count int
	err := r.tx.QueryRow(
		"SELECT COUNT(*) FROM source_tokens WHERE user_id = ? AND app_bundle = ? AND source = ?",
		userID, appBundle, source.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count source tokens: %w", err)
	}
	return count, nil
}
