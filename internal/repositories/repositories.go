package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/portify/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// Store is the unit-of-work factory over one database handle.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store with the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Begin opens a new transaction-scoped unit of work.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &UnitOfWork{
		tx:           tx,
		transfers:    &TransferRepository{tx: tx},
		sourceTokens: &SourceTokenRepository{tx: tx},
	}, nil
}

// UnitOfWork bundles the repositories of one transaction. Nothing written
// through it is visible to other readers until Commit.
type UnitOfWork struct {
	tx           *sql.Tx
	transfers    *TransferRepository
	sourceTokens *SourceTokenRepository
	closed       bool
}

// Transfers returns the transfer repository bound to this transaction.
func (u *UnitOfWork) Transfers() *TransferRepository {
	return u.transfers
}

// SourceTokens returns the source token repository bound to this transaction.
func (u *UnitOfWork) SourceTokens() *SourceTokenRepository {
	return u.sourceTokens
}

// Commit makes the unit's writes durable.
func (u *UnitOfWork) Commit() error {
	if u.closed {
		return fmt.Errorf("unit of work already closed")
	}
	u.closed = true

	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Rollback discards the unit's writes. Safe to defer after Commit.
func (u *UnitOfWork) Rollback() error {
	if u.closed {
		return nil
	}
	u.closed = true

	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	return nil
}

// mapSQLiteError translates driver constraint violations into the shared
// conflict sentinel so callers can errors.Is on it.
func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", shared.ErrConflict, err)
	}
	return err
}
