package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/shared"
)

// Client is the polymorphic contract every provider implements.
//
// Tokens are paired: a client only accepts tokens it minted itself (through
// NewToken or ValidateToken). Passing another provider's token is a
// programming error and fails with [shared.ErrInvalidToken].
type Client interface {
	// Source returns the provider this client talks to.
	Source() models.Source

	// AuthorizeLink returns the provider's OAuth authorization URL.
	AuthorizeLink() string

	// NewToken builds this provider's token from a raw access/refresh pair.
	NewToken(accessToken, refreshToken string) models.Token

	// ValidateToken parses a stored blob and verifies it with a cheap
	// authenticated call. An expired token is refreshed transparently; a
	// valid token comes back unchanged, so the call is idempotent.
	ValidateToken(ctx context.Context, raw string) (models.Token, error)

	// ListPlaylists retrieves the user's playlists.
	ListPlaylists(ctx context.Context, token models.Token) ([]models.Playlist, error)

	// ListAlbums retrieves the user's saved albums.
	ListAlbums(ctx context.Context, token models.Token) ([]models.Album, error)

	// ListPlaylistTracks retrieves the tracks of one playlist.
	ListPlaylistTracks(ctx context.Context, token models.Token, playlistID string) ([]models.Track, error)

	// ListFavoriteTracks retrieves the user's liked tracks.
	ListFavoriteTracks(ctx context.Context, token models.Token) ([]models.Track, error)

	// CreatePlaylist creates an empty playlist with the given name.
	CreatePlaylist(ctx context.Context, token models.Token, name string) (*models.Playlist, error)

	// AddAlbum saves the album matching (name, artist) to the user's library.
	AddAlbum(ctx context.Context, token models.Token, name, artist string) error

	// AddTracksToPlaylist adds provider-native track ids to a playlist.
	AddTracksToPlaylist(ctx context.Context, token models.Token, playlistID string, trackIDs ...string) error

	// SearchTrack resolves (name, artist) to the provider-native id of the
	// best match.
	SearchTrack(ctx context.Context, token models.Token, name, artist string) (string, error)
}

// notSupported builds the canonical capability-gap error for an operation.
func notSupported(source models.Source, operation string) error {
	return fmt.Errorf("%w: %s %s", shared.ErrNotSupported, source, operation)
}
