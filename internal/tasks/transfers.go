package tasks

import (
	"context"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
)

// PlaylistTransferRequest describes one requested playlist copy.
type PlaylistTransferRequest struct {
	UserID     string
	AppBundle  string
	FromSource models.Source
	ToSource   models.Source
	PlaylistID string
}

// AlbumTransferRequest describes one requested album copy.
type AlbumTransferRequest struct {
	UserID     string
	AppBundle  string
	FromSource models.Source
	ToSource   models.Source
	AlbumID    string
}

// CreateTransfer inserts a queued transfer row and returns it. The caller
// gets the handle back before any provider call happens; the actual run is
// scheduled separately on the [Runner].
func CreateTransfer(ctx context.Context, store *repositories.Store, kind models.TransferKind, userID, appBundle string, from, to models.Source) (*models.Transfer, error) {
	transfer := &models.Transfer{
		Kind:       kind,
		FromSource: from,
		ToSource:   to,
		Status:     models.TransferQueued,
		UserID:     userID,
		AppBundle:  appBundle,
	}

	uow, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.Transfers().Create(transfer); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return transfer, nil
}

// GetTransfer reads one transfer row by its handle.
func GetTransfer(ctx context.Context, store *repositories.Store, id string) (*models.Transfer, error) {
	uow, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.Transfers().Get(id)
}

// markStarted commits the queued -> started transition.
func markStarted(ctx context.Context, store *repositories.Store, id string) error {
	uow, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.Transfers().MarkStarted(id); err != nil {
		return err
	}
	return uow.Commit()
}

// markFinished commits the started -> finished transition with the result.
func markFinished(ctx context.Context, store *repositories.Store, id, result string) error {
	uow, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.Transfers().MarkFinished(id, result); err != nil {
		return err
	}
	return uow.Commit()
}

// markFailed commits the started -> failed transition with the error text.
func markFailed(ctx context.Context, store *repositories.Store, id, errText string) error {
	uow, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.Transfers().MarkFailed(id, errText); err != nil {
		return err
	}
	return uow.Commit()
}
