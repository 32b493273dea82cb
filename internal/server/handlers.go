package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
	"github.com/desertthunder/portify/internal/services"
	"github.com/desertthunder/portify/internal/shared"
	"github.com/desertthunder/portify/internal/tasks"
)

// expiredTokensDetail is the caller-facing text for an irrecoverably
// expired credential.
const expiredTokensDetail = "Source tokens expired. Please, connect source again"

// TransferHandler serves the transfer service's REST contract: connecting
// sources, listing libraries, scheduling transfers, and reading transfer
// status.
type TransferHandler struct {
	store    *repositories.Store
	registry *services.Registry
	engine   *tasks.Engine
	runner   *tasks.Runner
	logger   *log.Logger
}

// NewTransferHandler wires the handler to its collaborators.
func NewTransferHandler(store *repositories.Store, registry *services.Registry, engine *tasks.Engine, runner *tasks.Runner, logger *log.Logger) *TransferHandler {
	return &TransferHandler{
		store:    store,
		registry: registry,
		engine:   engine,
		runner:   runner,
		logger:   logger,
	}
}

// Routes returns the method-scoped patterns this handler serves.
func (h *TransferHandler) Routes() []string {
	return []string{
		"POST /source/connect",
		"GET /playlist",
		"POST /playlist",
		"GET /playlist/tracks",
		"GET /album",
		"POST /album",
		"GET /album/tracks",
		"GET /favorite",
		"GET /{transfer_id}",
	}
}

// ServeHTTP dispatches on the matched route pattern.
func (h *TransferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "POST /source/connect":
		h.connectSource(w, r)
	case "GET /playlist":
		h.listPlaylists(w, r)
	case "POST /playlist":
		h.createPlaylistTransfer(w, r)
	case "GET /playlist/tracks":
		h.listPlaylistTracks(w, r)
	case "GET /album":
		h.listAlbums(w, r)
	case "POST /album":
		h.createAlbumTransfer(w, r)
	case "GET /album/tracks":
		writeError(w, http.StatusBadRequest, "Not implemented for queried source")
	case "GET /favorite":
		h.listFavoriteTracks(w, r)
	case "GET /{transfer_id}":
		h.getTransfer(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *TransferHandler) connectSource(w http.ResponseWriter, r *http.Request) {
	var body connectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if body.UserID == "" || body.AppBundle == "" || body.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "user_id, app_bundle and access_token are required")
		return
	}

	client, ok := h.sourceClient(w, r)
	if !ok {
		return
	}

	err := tasks.ConnectSource(r.Context(), h.store, client, tasks.ConnectRequest{
		UserID:       body.UserID,
		AppBundle:    body.AppBundle,
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	})
	if err != nil {
		h.writeMapped(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *TransferHandler) listPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, appBundle, ok := h.userKey(w, r)
	if !ok {
		return
	}
	client, ok := h.sourceClient(w, r)
	if !ok {
		return
	}

	playlists, err := tasks.ListUserPlaylists(r.Context(), h.store, client, userID, appBundle)
	if err != nil {
		h.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistResponses(playlists))
}

func (h *TransferHandler) listAlbums(w http.ResponseWriter, r *http.Request) {
	userID, appBundle, ok := h.userKey(w, r)
	if !ok {
		return
	}
	client, ok := h.sourceClient(w, r)
	if !ok {
		return
	}

	albums, err := tasks.ListUserAlbums(r.Context(), h.store, client, userID, appBundle)
	if err != nil {
		h.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumResponses(albums))
}

func (h *TransferHandler) listPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	userID, appBundle, ok := h.userKey(w, r)
	if !ok {
		return
	}
	playlistID := r.URL.Query().Get("playlist_id")
	if playlistID == "" {
		writeError(w, http.StatusBadRequest, "playlist_id query parameter is required")
		return
	}
	client, ok := h.sourceClient(w, r)
	if !ok {
		return
	}

	tracks, err := tasks.ListUserPlaylistTracks(r.Context(), h.store, client, userID, appBundle, playlistID)
	if err != nil {
		h.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackResponses(tracks))
}

func (h *TransferHandler) listFavoriteTracks(w http.ResponseWriter, r *http.Request) {
	userID, appBundle, ok := h.userKey(w, r)
	if !ok {
		return
	}
	client, ok := h.sourceClient(w, r)
	if !ok {
		return
	}

	tracks, err := tasks.ListUserFavoriteTracks(r.Context(), h.store, client, userID, appBundle)
	if err != nil {
		h.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackResponses(tracks))
}

func (h *TransferHandler) createPlaylistTransfer(w http.ResponseWriter, r *http.Request) {
	var body playlistTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	from, to, ok := h.sourcePair(w, body.FromSource, body.ToSource)
	if !ok {
		return
	}
	if body.UserID == "" || body.AppBundle == "" || body.PlaylistID == "" {
		writeError(w, http.StatusBadRequest, "user_id, app_bundle and playlist_id are required")
		return
	}

	transfer, err := tasks.CreateTransfer(r.Context(), h.store, models.TransferKindPlaylist, body.UserID, body.AppBundle, from, to)
	if err != nil {
		h.writeMapped(w, err)
		return
	}

	req := tasks.PlaylistTransferRequest{
		UserID:     body.UserID,
		AppBundle:  body.AppBundle,
		FromSource: from,
		ToSource:   to,
		PlaylistID: body.PlaylistID,
	}
	h.runner.Go("playlist transfer "+transfer.ID, func(ctx context.Context) error {
		return h.engine.RunPlaylistTransfer(ctx, transfer.ID, req)
	})

	writeJSON(w, http.StatusOK, transferCreatedResponse{
		ID:        transfer.ID,
		Status:    string(transfer.Status),
		UserID:    transfer.UserID,
		AppBundle: transfer.AppBundle,
	})
}

func (h *TransferHandler) createAlbumTransfer(w http.ResponseWriter, r *http.Request) {
	var body albumTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	from, to, ok := h.sourcePair(w, body.FromSource, body.ToSource)
	if !ok {
		return
	}
	if body.UserID == "" || body.AppBundle == "" || body.AlbumID == "" {
		writeError(w, http.StatusBadRequest, "user_id, app_bundle and album_id are required")
		return
	}

	transfer, err := tasks.CreateTransfer(r.Context(), h.store, models.TransferKindAlbum, body.UserID, body.AppBundle, from, to)
	if err != nil {
		h.writeMapped(w, err)
		return
	}

	req := tasks.AlbumTransferRequest{
		UserID:     body.UserID,
		AppBundle:  body.AppBundle,
		FromSource: from,
		ToSource:   to,
		AlbumID:    body.AlbumID,
	}
	h.runner.Go("album transfer "+transfer.ID, func(ctx context.Context) error {
		return h.engine.RunAlbumTransfer(ctx, transfer.ID, req)
	})

	writeJSON(w, http.StatusOK, transferCreatedResponse{
		ID:        transfer.ID,
		Status:    string(transfer.Status),
		UserID:    transfer.UserID,
		AppBundle: transfer.AppBundle,
	})
}

func (h *TransferHandler) getTransfer(w http.ResponseWriter, r *http.Request) {
	transfer, err := tasks.GetTransfer(r.Context(), h.store, r.PathValue("transfer_id"))
	if err != nil {
		h.writeMapped(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{
		ID:        transfer.ID,
		Status:    string(transfer.Status),
		Error:     transfer.Error,
		Result:    transfer.Result,
		UserID:    transfer.UserID,
		AppBundle: transfer.AppBundle,
	})
}

// userKey reads the user_id and app_bundle query parameters.
func (h *TransferHandler) userKey(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID := r.URL.Query().Get("user_id")
	appBundle := r.URL.Query().Get("app_bundle")
	if userID == "" || appBundle == "" {
		writeError(w, http.StatusBadRequest, "user_id and app_bundle query parameters are required")
		return "", "", false
	}
	return userID, appBundle, true
}

// sourceClient resolves the source query parameter to a provider client.
func (h *TransferHandler) sourceClient(w http.ResponseWriter, r *http.Request) (services.Client, bool) {
	source, err := models.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	client, err := h.registry.Client(source)
	if err != nil {
		h.writeMapped(w, err)
		return nil, false
	}
	return client, true
}

// sourcePair parses and validates a from/to source pair.
func (h *TransferHandler) sourcePair(w http.ResponseWriter, rawFrom, rawTo string) (models.Source, models.Source, bool) {
	from, err := models.ParseSource(rawFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	to, err := models.ParseSource(rawTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	return from, to, true
}

// writeMapped translates an error from the task layer into its HTTP reply.
func (h *TransferHandler) writeMapped(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, expiredTokensDetail)
	case errors.Is(err, shared.ErrSourceNotConnected),
		errors.Is(err, shared.ErrNotSupported),
		errors.Is(err, shared.ErrInvalidResponse),
		errors.Is(err, shared.ErrConflict):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrEmptyResponse), errors.Is(err, shared.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
