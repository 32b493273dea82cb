// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/shared"
)

// MockToken is a minimal [models.Token] for tests.
type MockToken struct {
	TokenSource models.Source
	Access      string `json:"access_token"`
	Refresh     string `json:"refresh_token"`
}

func (t *MockToken) Source() models.Source { return t.TokenSource }

func (t *MockToken) Serialize() (string, error) {
	blob, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

// AddTracksCall records one AddTracksToPlaylist invocation.
type AddTracksCall struct {
	PlaylistID string
	TrackIDs   []string
}

// MockClient is a configurable test double for [services.Client]. Behavior
// is overridden per test through the function fields; unset functions fall
// back to benign defaults. Mutating calls are recorded.
type MockClient struct {
	SourceValue models.Source

	ValidateTokenFunc  func(ctx context.Context, raw string) (models.Token, error)
	ListPlaylistsFunc  func(ctx context.Context, token models.Token) ([]models.Playlist, error)
	ListAlbumsFunc     func(ctx context.Context, token models.Token) ([]models.Album, error)
	ListTracksFunc     func(ctx context.Context, token models.Token, playlistID string) ([]models.Track, error)
	ListFavoritesFunc  func(ctx context.Context, token models.Token) ([]models.Track, error)
	CreatePlaylistFunc func(ctx context.Context, token models.Token, name string) (*models.Playlist, error)
	AddAlbumFunc       func(ctx context.Context, token models.Token, name, artist string) error
	SearchTrackFunc    func(ctx context.Context, token models.Token, name, artist string) (string, error)
	AddTracksFunc      func(ctx context.Context, token models.Token, playlistID string, trackIDs ...string) error

	ValidateCalls  int
	AddTracksCalls []AddTracksCall
	AddedAlbums    []string
	CreatedLists   []string
}

func (m *MockClient) Source() models.Source { return m.SourceValue }

func (m *MockClient) AuthorizeLink() string {
	return "https://auth.example.com/" + string(m.SourceValue)
}

func (m *MockClient) NewToken(accessToken, refreshToken string) models.Token {
	return &MockToken{TokenSource: m.SourceValue, Access: accessToken, Refresh: refreshToken}
}

func (m *MockClient) ValidateToken(ctx context.Context, raw string) (models.Token, error) {
	m.ValidateCalls++
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, raw)
	}
	token := &MockToken{TokenSource: m.SourceValue}
	if err := json.Unmarshal([]byte(raw), token); err != nil {
		return nil, err
	}
	return token, nil
}

func (m *MockClient) ListPlaylists(ctx context.Context, token models.Token) ([]models.Playlist, error) {
	if m.ListPlaylistsFunc != nil {
		return m.ListPlaylistsFunc(ctx, token)
	}
	return []models.Playlist{}, nil
}

func (m *MockClient) ListAlbums(ctx context.Context, token models.Token) ([]models.Album, error) {
	if m.ListAlbumsFunc != nil {
		return m.ListAlbumsFunc(ctx, token)
	}
	return []models.Album{}, nil
}

func (m *MockClient) ListPlaylistTracks(ctx context.Context, token models.Token, playlistID string) ([]models.Track, error) {
	if m.ListTracksFunc != nil {
		return m.ListTracksFunc(ctx, token, playlistID)
	}
	return []models.Track{}, nil
}

func (m *MockClient) ListFavoriteTracks(ctx context.Context, token models.Token) ([]models.Track, error) {
	if m.ListFavoritesFunc != nil {
		return m.ListFavoritesFunc(ctx, token)
	}
	return []models.Track{}, nil
}

func (m *MockClient) CreatePlaylist(ctx context.Context, token models.Token, name string) (*models.Playlist, error) {
	m.CreatedLists = append(m.CreatedLists, name)
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, token, name)
	}
	return &models.Playlist{SourceID: "mock-playlist", Source: m.SourceValue, Name: name}, nil
}

func (m *MockClient) AddAlbum(ctx context.Context, token models.Token, name, artist string) error {
	if m.AddAlbumFunc != nil {
		if err := m.AddAlbumFunc(ctx, token, name, artist); err != nil {
			return err
		}
	}
	m.AddedAlbums = append(m.AddedAlbums, fmt.Sprintf("%s - %s", artist, name))
	return nil
}

func (m *MockClient) AddTracksToPlaylist(ctx context.Context, token models.Token, playlistID string, trackIDs ...string) error {
	if m.AddTracksFunc != nil {
		if err := m.AddTracksFunc(ctx, token, playlistID, trackIDs...); err != nil {
			return err
		}
	}
	m.AddTracksCalls = append(m.AddTracksCalls, AddTracksCall{PlaylistID: playlistID, TrackIDs: trackIDs})
	return nil
}

func (m *MockClient) SearchTrack(ctx context.Context, token models.Token, name, artist string) (string, error) {
	if m.SearchTrackFunc != nil {
		return m.SearchTrackFunc(ctx, token, name, artist)
	}
	return "mock-track", nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// NewTestDB opens an in-memory SQLite database with migrations applied.
// The handle is closed when the test finishes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A second pooled connection would see its own empty :memory: database.
	shared.ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}
