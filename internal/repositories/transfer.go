package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/shared"
)

// TransferRepository persists transfer job rows within one transaction.
type TransferRepository struct {
	tx *sql.Tx
}

// Create inserts a new transfer with a generated ID and status queued.
func (r *TransferRepository) Create(transfer *models.Transfer) error {
	if transfer.ID == "" {
		transfer.ID = shared.GenerateID()
	}
	if transfer.Status == "" {
		transfer.Status = models.TransferQueued
	}

	now := time.Now().UTC()
	transfer.CreatedAt = now
	transfer.UpdatedAt = now

	query := `
		INSERT INTO transfers (id, kind, from_source, to_source, status, error, result, user_id, app_bundle, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.tx.Exec(query,
		transfer.ID,
		string(transfer.Kind),
		transfer.FromSource.String(),
		transfer.ToSource.String(),
		string(transfer.Status),
		nullable(transfer.Error),
		nullable(transfer.Result),
		transfer.UserID,
		transfer.AppBundle,
		transfer.CreatedAt,
		transfer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", mapSQLiteError(err))
	}

	return nil
}

// Get retrieves a transfer by ID.
func (r *TransferRepository) Get(id string) (*models.Transfer, error) {
	query := `
		SELECT id, kind, from_source, to_source, status, error, result, user_id, app_bundle, created_at, updated_at
		FROM transfers
		WHERE id = ?
	`

	var (
		transfer        models.Transfer
		kind            string
		fromSrc, toSrc  string
		status          string
		errText, result sql.NullString
	)

	err := r.tx.QueryRow(query, id).Scan(
		&transfer.ID,
		&kind,
		&fromSrc,
		&toSrc,
		&status,
		&errText,
		&result,
		&transfer.UserID,
		&transfer.AppBundle,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transfer %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	transfer.Kind = models.TransferKind(kind)
	transfer.FromSource = models.Source(fromSrc)
	transfer.ToSource = models.Source(toSrc)

	parsed, err := models.ParseTransferStatus(status)
	if err != nil {
		return nil, fmt.Errorf("corrupt transfer row: %w", err)
	}
	transfer.Status = parsed
	transfer.Error = errText.String
	transfer.Result = result.String

	return &transfer, nil
}

// MarkStarted transitions a queued transfer to started.
func (r *TransferRepository) MarkStarted(id string) error {
	return r.transition(id, models.TransferStarted, "", "")
}

// MarkFinished transitions a started transfer to finished and records the
// provider-native result description.
func (r *TransferRepository) MarkFinished(id, result string) error {
	return r.transition(id, models.TransferFinished, "", result)
}

// MarkFailed transitions a started transfer to failed and captures the
// error text verbatim.
func (r *TransferRepository) MarkFailed(id, errText string) error {
	return r.transition(id, models.TransferFailed, errText, "")
}

// transition validates the status graph against the current row inside the
// transaction before writing. Illegal transitions fail with ErrConflict so
// a finished or failed transfer can never move again.
func (r *TransferRepository) transition(id string, next models.TransferStatus, errText, result string) error {
	current, err := r.Get(id)
	if err != nil {
		return err
	}

	if !current.Status.CanTransition(next) {
		return fmt.Errorf("%w: transfer %s cannot move %s -> %s", shared.ErrConflict, id, current.Status, next)
	}

	query := `
		UPDATE transfers
		SET status = ?, error = ?, result = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := r.tx.Exec(query,
		string(next),
		nullable(errText),
		nullable(result),
		time.Now().UTC(),
		id,
		string(current.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", mapSQLiteError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: transfer %s changed concurrently", shared.ErrConflict, id)
	}

	return nil
}

// nullable maps an empty string to NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
