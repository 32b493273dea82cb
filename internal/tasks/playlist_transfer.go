package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
	"github.com/desertthunder/portify/internal/services"
)

// Engine runs transfer jobs against the store and the provider registry.
// One engine is shared by the server; runs for distinct transfers are
// independent and safe to execute concurrently.
type Engine struct {
	store    *repositories.Store
	registry *services.Registry
	logger   *log.Logger

	// now is swapped in tests to pin generated playlist names.
	now func() time.Time
}

// NewEngine builds a transfer engine.
func NewEngine(store *repositories.Store, registry *services.Registry, logger *log.Logger) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// transferResult is the JSON blob persisted on a finished transfer.
type transferResult struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Source models.Source `json:"source"`
}

func encodeResult(id, name string, source models.Source) (string, error) {
	blob, err := json.Marshal(transferResult{ID: id, Name: name, Source: source})
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

// RunPlaylistTransfer executes one playlist transfer end to end: read the
// source playlist's tracks, create a dated playlist on the destination,
// match every track by search, and add all matches in one call.
//
// Any failing step aborts the whole run; the destination may then hold the
// empty playlist, which is never rolled back. The first error is recorded
// on the transfer row and returned.
func (e *Engine) RunPlaylistTransfer(ctx context.Context, transferID string, req PlaylistTransferRequest) error {
	if err := markStarted(ctx, e.store, transferID); err != nil {
		return err
	}

	err := e.runPlaylist(ctx, transferID, req)
	if err != nil {
		e.logger.Error("playlist transfer failed", "transfer", transferID, "error", err)
		if markErr := markFailed(ctx, e.store, transferID, err.Error()); markErr != nil {
			e.logger.Error("failed to record transfer failure", "transfer", transferID, "error", markErr)
		}
		return err
	}
	return nil
}

func (e *Engine) runPlaylist(ctx context.Context, transferID string, req PlaylistTransferRequest) error {
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

	tracks, err := from.ListPlaylistTracks(ctx, fromToken, req.PlaylistID)
	if err != nil {
		return err
	}

	name := "Transferred " + e.now().Format("2006-01-02")
	created, err := to.CreatePlaylist(ctx, toToken, name)
	if err != nil {
		return err
	}

	e.logger.Info("created destination playlist",
		"source", req.ToSource, "playlist", created.SourceID, "tracks", len(tracks))

	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		id, err := to.SearchTrack(ctx, toToken, track.Name, track.ArtistName)
		if err != nil {
			return fmt.Errorf("matching %q by %q: %w", track.Name, track.ArtistName, err)
		}
		ids = append(ids, id)
	}

	if len(ids) > 0 {
		if err := to.AddTracksToPlaylist(ctx, toToken, created.SourceID, ids...); err != nil {
			return err
		}
	}

	result, err := encodeResult(created.SourceID, created.Name, req.ToSource)
	if err != nil {
		return err
	}
	return markFinished(ctx, e.store, transferID, result)
}
