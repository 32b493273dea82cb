package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/portify/internal/shared"
)

// RunAlbumTransfer executes one album transfer: look the album up in the
// source library, then save the same (name, artist) on the destination.
// Like playlist runs, the first failing step aborts the job.
func (e *Engine) RunAlbumTransfer(ctx context.Context, transferID string, req AlbumTransferRequest) error {
	if err := markStarted(ctx, e.store, transferID); err != nil {
		return err
	}

	err := e.runAlbum(ctx, transferID, req)
	if err != nil {
		e.logger.Error("album transfer failed", "transfer", transferID, "error", err)
		if markErr := markFailed(ctx, e.store, transferID, err.Error()); markErr != nil {
			e.logger.Error("failed to record transfer failure", "transfer", transferID, "error", markErr)
		}
		return err
	}
	return nil
}

func (e *Engine) runAlbum(ctx context.Context, transferID string, req AlbumTransferRequest) error {
	from, err := e.registry.Client(req.FromSource)
	if err != nil {
		return err
	}
	to, err := e.registry.Client(req.ToSource)
	if err != nil {
		return err
	}

	fromToken, err := ResolveToken(ctx, e.store, from, req.UserID, req.AppBundle)
	if err != nil {
		return err
	}
	toToken, err := ResolveToken(ctx, e.store, to, req.UserID, req.AppBundle)
	if err != nil {
		return err
	}

	albums, err := from.ListAlbums(ctx, fromToken)
	if err != nil {
		return err
	}

	var name, artist string
	found := false
	for _, album := range albums {
		if album.SourceID == req.AlbumID {
			name, artist = album.Name, album.ArtistName
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: album %q in %s library", shared.ErrNotFound, req.AlbumID, req.FromSource)
	}

	if err := to.AddAlbum(ctx, toToken, name, artist); err != nil {
		return err
	}

	result, err := encodeResult(req.AlbumID, name, req.ToSource)
	if err != nil {
		return err
	}
	return markFinished(ctx, e.store, transferID, result)
}
