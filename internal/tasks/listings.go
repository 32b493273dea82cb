package tasks

import (
	"context"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
	"github.com/desertthunder/portify/internal/services"
)

// ListUserPlaylists resolves the user's credential and lists their
// playlists on the provider.
func ListUserPlaylists(ctx context.Context, store *repositories.Store, client services.Client, userID, appBundle string) ([]models.Playlist, error) {
	token, err := ResolveToken(ctx, store, client, userID, appBundle)
	if err != nil {
		return nil, err
	}
	return client.ListPlaylists(ctx, token)
}

// ListUserAlbums resolves the user's credential and lists their saved
// albums on the provider.
func ListUserAlbums(ctx context.Context, store *repositories.Store, client services.Client, userID, appBundle string) ([]models.Album, error) {
	token, err := ResolveToken(ctx, store, client, userID, appBundle)
	if err != nil {
		return nil, err
	}
	return client.ListAlbums(ctx, token)
}

// ListUserPlaylistTracks resolves the user's credential and lists the
// tracks of one playlist.
func ListUserPlaylistTracks(ctx context.Context, store *repositories.Store, client services.Client, userID, appBundle, playlistID string) ([]models.Track, error) {
	token, err := ResolveToken(ctx, store, client, userID, appBundle)
	if err != nil {
		return nil, err
	}
	return client.ListPlaylistTracks(ctx, token, playlistID)
}

// ListUserFavoriteTracks resolves the user's credential and lists their
// liked tracks on the provider.
func ListUserFavoriteTracks(ctx context.Context, store *repositories.Store, client services.Client, userID, appBundle string) ([]models.Track, error) {
	token, err := ResolveToken(ctx, store, client, userID, appBundle)
	if err != nil {
		return nil, err
	}
	return client.ListFavoriteTracks(ctx, token)
}
