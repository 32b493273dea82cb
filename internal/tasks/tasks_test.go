package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
	"github.com/desertthunder/portify/internal/services"
	"github.com/desertthunder/portify/internal/shared"
	tu "github.com/desertthunder/portify/internal/testing"
)

func newTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	return repositories.NewStore(tu.NewTestDB(t))
}

func newTestEngine(t *testing.T, store *repositories.Store, clients ...services.Client) *Engine {
	t.Helper()
	engine := NewEngine(store, services.NewRegistryWith(clients...), shared.NewLogger(io.Discard))
	engine.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return engine
}

func connect(t *testing.T, store *repositories.Store, client services.Client) {
	t.Helper()
	err := ConnectSource(context.Background(), store, client, ConnectRequest{
		UserID:       "u1",
		AppBundle:    "a1",
		AccessToken:  "access",
		RefreshToken: "refresh",
	})
	if err != nil {
		t.Fatalf("failed to connect %s: %v", client.Source(), err)
	}
}

func readTransfer(t *testing.T, store *repositories.Store, id string) *models.Transfer {
	t.Helper()
	transfer, err := GetTransfer(context.Background(), store, id)
	if err != nil {
		t.Fatalf("failed to read transfer %s: %v", id, err)
	}
	return transfer
}

func readStoredToken(t *testing.T, store *repositories.Store, source models.Source) string {
	t.Helper()
	uow, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	defer uow.Rollback()

	record, err := uow.SourceTokens().GetByUser("u1", "a1", source)
	if err != nil {
		t.Fatalf("failed to read stored token: %v", err)
	}
	return record.TokenData
}

func TestConnectSource(t *testing.T) {
	t.Run("Persists The Provider Token", func(t *testing.T) {
		store := newTestStore(t)
		client := &tu.MockClient{SourceValue: models.SourceSpotify}

		connect(t, store, client)

		blob := readStoredToken(t, store, models.SourceSpotify)
		if !strings.Contains(blob, `"access_token":"access"`) {
			t.Errorf("expected serialized credential pair, got %s", blob)
		}
	})

	t.Run("Reconnect Replaces The Blob", func(t *testing.T) {
		store := newTestStore(t)
		client := &tu.MockClient{SourceValue: models.SourceSpotify}

		connect(t, store, client)
		err := ConnectSource(context.Background(), store, client, ConnectRequest{
			UserID: "u1", AppBundle: "a1", AccessToken: "second", RefreshToken: "refresh",
		})
		if err != nil {
			t.Fatalf("failed to reconnect: %v", err)
		}

		blob := readStoredToken(t, store, models.SourceSpotify)
		if !strings.Contains(blob, `"access_token":"second"`) {
			t.Errorf("expected latest credentials, got %s", blob)
		}
	})
}

func TestResolveToken(t *testing.T) {
	t.Run("Unconnected Source Fails Before Any Provider Call", func(t *testing.T) {
		store := newTestStore(t)
		client := &tu.MockClient{SourceValue: models.SourceSpotify}

		_, err := ResolveToken(context.Background(), store, client, "u1", "a1")
		if !errors.Is(err, shared.ErrSourceNotConnected) {
			t.Fatalf("expected ErrSourceNotConnected, got %v", err)
		}
		if client.ValidateCalls != 0 {
			t.Errorf("expected no provider call, got %d", client.ValidateCalls)
		}
	})

	t.Run("Persists The Validated Token Unconditionally", func(t *testing.T) {
		store := newTestStore(t)
		client := &tu.MockClient{
			SourceValue: models.SourceSpotify,
			ValidateTokenFunc: func(ctx context.Context, raw string) (models.Token, error) {
				return &tu.MockToken{TokenSource: models.SourceSpotify, Access: "refreshed", Refresh: "refresh"}, nil
			},
		}

		connect(t, store, client)

		token, err := ResolveToken(context.Background(), store, client, "u1", "a1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.Source() != models.SourceSpotify {
			t.Errorf("unexpected token source %s", token.Source())
		}

		blob := readStoredToken(t, store, models.SourceSpotify)
		if !strings.Contains(blob, `"access_token":"refreshed"`) {
			t.Errorf("expected refreshed blob persisted, got %s", blob)
		}
	})

	t.Run("Validation Failure Propagates", func(t *testing.T) {
		store := newTestStore(t)
		client := &tu.MockClient{
			SourceValue: models.SourceSpotify,
			ValidateTokenFunc: func(ctx context.Context, raw string) (models.Token, error) {
				return nil, shared.ErrUnauthorized
			},
		}

		connect(t, store, client)

		if _, err := ResolveToken(context.Background(), store, client, "u1", "a1"); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestCreateTransfer(t *testing.T) {
	t.Run("Returns A Queued Handle", func(t *testing.T) {
		store := newTestStore(t)

		transfer, err := CreateTransfer(context.Background(), store, models.TransferKindPlaylist, "u1", "a1", models.SourceSpotify, models.SourceYouTube)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if transfer.ID == "" || transfer.Status != models.TransferQueued {
			t.Errorf("unexpected handle %+v", transfer)
		}

		got := readTransfer(t, store, transfer.ID)
		if got.Status != models.TransferQueued {
			t.Errorf("expected queued row, got %s", got.Status)
		}
	})

	t.Run("Unknown Transfer", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := GetTransfer(context.Background(), store, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRunPlaylistTransfer(t *testing.T) {
	t.Run("Copies Tracks In One Batch", func(t *testing.T) {
		store := newTestStore(t)

		from := &tu.MockClient{
			SourceValue: models.SourceSpotify,
			ListTracksFunc: func(ctx context.Context, token models.Token, playlistID string) ([]models.Track, error) {
				if playlistID != "p1" {
					t.Errorf("expected playlist p1, got %s", playlistID)
				}
				return []models.Track{
					{SourceID: "t1", Source: models.SourceSpotify, Name: "Song A", ArtistName: "Art1"},
					{SourceID: "t2", Source: models.SourceSpotify, Name: "Song B", ArtistName: "Art2"},
				}, nil
			},
		}
		to := &tu.MockClient{
			SourceValue: models.SourceYouTube,
			CreatePlaylistFunc: func(ctx context.Context, token models.Token, name string) (*models.Playlist, error) {
				if name != "Transferred 2024-06-01" {
					t.Errorf("unexpected playlist name %q", name)
				}
				return &models.Playlist{SourceID: "np1", Source: models.SourceYouTube, Name: name}, nil
			},
			SearchTrackFunc: func(ctx context.Context, token models.Token, name, artist string) (string, error) {
				switch name {
				case "Song A":
					return "a1", nil
				case "Song B":
					return "b1", nil
				}
				return "", fmt.Errorf("%w: %s", shared.ErrEmptyResponse, name)
			},
		}

		connect(t, store, from)
		connect(t, store, to)

		engine := newTestEngine(t, store, from, to)
		transfer, err := CreateTransfer(context.Background(), store, models.TransferKindPlaylist, "u1", "a1", models.SourceSpotify, models.SourceYouTube)
		if err != nil {
			t.Fatalf("failed to create transfer: %v", err)
		}

		err = engine.RunPlaylistTransfer(context.Background(), transfer.ID, PlaylistTransferRequest{
			UserID: "u1", AppBundle: "a1",
			FromSource: models.SourceSpotify, ToSource: models.SourceYouTube,
			PlaylistID: "p1",
		})
		if err != nil {
			t.Fatalf("expected run to succeed, got %v", err)
		}

		if len(to.AddTracksCalls) != 1 {
			t.Fatalf("expected one add-tracks call, got %d", len(to.AddTracksCalls))
		}
		call := to.AddTracksCalls[0]
		if call.PlaylistID != "np1" {
			t.Errorf("expected tracks added to np1, got %s", call.PlaylistID)
		}
		if len(call.TrackIDs) != 2 || call.TrackIDs[0] != "a1" || call.TrackIDs[1] != "b1" {
			t.Errorf("expected both matched ids in order, got %v", call.TrackIDs)
		}

		got := readTransfer(t, store, transfer.ID)
		if got.Status != models.TransferFinished {
			t.Errorf("expected finished, got %s (error %q)", got.Status, got.Error)
		}
		if !strings.Contains(got.Result, "np1") {
			t.Errorf("expected result to reference the created playlist, got %s", got.Result)
		}
	})

	t.Run("First Error Aborts The Whole Run", func(t *testing.T) {
		store := newTestStore(t)

		from := &tu.MockClient{
			SourceValue: models.SourceSpotify,
			ListTracksFunc: func(ctx context.Context, token models.Token, playlistID string) ([]models.Track, error) {
				return []models.Track{
					{SourceID: "t1", Name: "Song A", ArtistName: "Art1"},
					{SourceID: "t2", Name: "Song B", ArtistName: "Art2"},
				}, nil
			},
		}
		to := &tu.MockClient{
			SourceValue: models.SourceYouTube,
			SearchTrackFunc: func(ctx context.Context, token models.Token, name, artist string) (string, error) {
				if name == "Song B" {
					return "", fmt.Errorf("%w: no match for %q", shared.ErrEmptyResponse, name)
				}
				return "a1", nil
			},
		}

		connect(t, store, from)
		connect(t, store, to)

		engine := newTestEngine(t, store, from, to)
		transfer, _ := CreateTransfer(context.Background(), store, models.TransferKindPlaylist, "u1", "a1", models.SourceSpotify, models.SourceYouTube)

		err := engine.RunPlaylistTransfer(context.Background(), transfer.ID, PlaylistTransferRequest{
			UserID: "u1", AppBundle: "a1",
			FromSource: models.SourceSpotify, ToSource: models.SourceYouTube,
			PlaylistID: "p1",
		})
		if !errors.Is(err, shared.ErrEmptyResponse) {
			t.Fatalf("expected match failure to propagate, got %v", err)
		}

		if len(to.AddTracksCalls) != 0 {
			t.Errorf("expected no partial track writes, got %d calls", len(to.AddTracksCalls))
		}

		got := readTransfer(t, store, transfer.ID)
		if got.Status != models.TransferFailed {
			t.Errorf("expected failed, got %s", got.Status)
		}
		if !strings.Contains(got.Error, "Song B") {
			t.Errorf("expected error text to name the track, got %q", got.Error)
		}
	})

	t.Run("Missing Source Token Fails The Transfer", func(t *testing.T) {
		store := newTestStore(t)

		from := &tu.MockClient{SourceValue: models.SourceSpotify}
		to := &tu.MockClient{SourceValue: models.SourceYouTube}

		// only the destination is connected
		connect(t, store, to)

		engine := newTestEngine(t, store, from, to)
		transfer, _ := CreateTransfer(context.Background(), store, models.TransferKindPlaylist, "u1", "a1", models.SourceSpotify, models.SourceYouTube)

		err := engine.RunPlaylistTransfer(context.Background(), transfer.ID, PlaylistTransferRequest{
			UserID: "u1", AppBundle: "a1",
			FromSource: models.SourceSpotify, ToSource: models.SourceYouTube,
			PlaylistID: "p1",
		})
		if !errors.Is(err, shared.ErrSourceNotConnected) {
			t.Fatalf("expected ErrSourceNotConnected, got %v", err)
		}

		got := readTransfer(t, store, transfer.ID)
		if got.Status != models.TransferFailed {
			t.Errorf("expected failed, got %s", got.Status)
		}
	})
}

func TestRunAlbumTransfer(t *testing.T) {
	sourceAlbums := func(ctx context.Context, token models.Token) ([]models.Album, error) {
		return []models.Album{
			{SourceID: "al1", Source: models.SourceSpotify, Name: "Blue", ArtistName: "Miles Davis"},
			{SourceID: "al2", Source: models.SourceSpotify, Name: "Red", ArtistName: "Other"},
		}, nil
	}

	t.Run("Adds The Matching Album", func(t *testing.T) {
		store := newTestStore(t)

		from := &tu.MockClient{SourceValue: models.SourceSpotify, ListAlbumsFunc: sourceAlbums}
		to := &tu.MockClient{SourceValue: models.SourceYouTube}

		connect(t, store, from)
		connect(t, store, to)

		engine := newTestEngine(t, store, from, to)
		transfer, _ := CreateTransfer(context.Background(), store, models.TransferKindAlbum, "u1", "a1", models.SourceSpotify, models.SourceYouTube)

		err := engine.RunAlbumTransfer(context.Background(), transfer.ID, AlbumTransferRequest{
			UserID: "u1", AppBundle: "a1",
			FromSource: models.SourceSpotify, ToSource: models.SourceYouTube,
			AlbumID: "al1",
		})
		if err != nil {
			t.Fatalf("expected run to succeed, got %v", err)
		}

		if len(to.AddedAlbums) != 1 || to.AddedAlbums[0] != "Miles Davis - Blue" {
			t.Errorf("expected album added by (name, artist), got %v", to.AddedAlbums)
		}

		got := readTransfer(t, store, transfer.ID)
		if got.Status != models.TransferFinished {
			t.Errorf("expected finished, got %s (error %q)", got.Status, got.Error)
		}
		if !strings.Contains(got.Result, "Blue") {
			t.Errorf("expected result to describe the album, got %s", got.Result)
		}
	})

	t.Run("Unsupported Destination Fails With Detail", func(t *testing.T) {
		store := newTestStore(t)

		from := &tu.MockClient{SourceValue: models.SourceSpotify, ListAlbumsFunc: sourceAlbums}
		to := &tu.MockClient{
			SourceValue: models.SourceYouTube,
			AddAlbumFunc: func(ctx context.Context, token models.Token, name, artist string) error {
				return fmt.Errorf("%w: youtube add album", shared.ErrNotSupported)
			},
		}

		connect(t, store, from)
		connect(t, store, to)

		engine := newTestEngine(t, store, from, to)
		transfer, _ := CreateTransfer(context.Background(), store, models.TransferKindAlbum, "u1", "a1", models.SourceSpotify, models.SourceYouTube)

		err := engine.RunAlbumTransfer(context.Background(), transfer.ID, AlbumTransferRequest{
			UserID: "u1", AppBundle: "a1",
			FromSource: models.SourceSpotify, ToSource: models.SourceYouTube,
			AlbumID: "al1",
		})
		if !errors.Is(err, shared.ErrNotSupported) {
			t.Fatalf("expected ErrNotSupported, got %v", err)
		}

		if len(to.AddedAlbums) != 0 {
			t.Errorf("expected no destination writes, got %v", to.AddedAlbums)
		}

		got := readTransfer(t, store, transfer.ID)
		if got.Status != models.TransferFailed {
			t.Errorf("expected failed, got %s", got.Status)
		}
		if !strings.Contains(got.Error, "not supported") {
			t.Errorf("expected not-supported detail in error, got %q", got.Error)
		}
	})

	t.Run("Album Missing From Source Library", func(t *testing.T) {
		store := newTestStore(t)

		from := &tu.MockClient{SourceValue: models.SourceSpotify, ListAlbumsFunc: sourceAlbums}
		to := &tu.MockClient{SourceValue: models.SourceYouTube}

		connect(t, store, from)
		connect(t, store, to)

		engine := newTestEngine(t, store, from, to)
		transfer, _ := CreateTransfer(context.Background(), store, models.TransferKindAlbum, "u1", "a1", models.SourceSpotify, models.SourceYouTube)

		err := engine.RunAlbumTransfer(context.Background(), transfer.ID, AlbumTransferRequest{
			UserID: "u1", AppBundle: "a1",
			FromSource: models.SourceSpotify, ToSource: models.SourceYouTube,
			AlbumID: "ghost",
		})
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if len(to.AddedAlbums) != 0 {
			t.Errorf("expected no destination writes, got %v", to.AddedAlbums)
		}
	})
}

func TestListings(t *testing.T) {
	t.Run("Delegates After Resolving The Token", func(t *testing.T) {
		store := newTestStore(t)
		client := &tu.MockClient{
			SourceValue: models.SourceSpotify,
			ListPlaylistsFunc: func(ctx context.Context, token models.Token) ([]models.Playlist, error) {
				return []models.Playlist{{SourceID: "p1", Source: models.SourceSpotify, Name: "Road Trip"}}, nil
			},
		}

		connect(t, store, client)

		playlists, err := ListUserPlaylists(context.Background(), store, client, "u1", "a1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 1 || playlists[0].SourceID != "p1" {
			t.Errorf("unexpected playlists %+v", playlists)
		}
		if client.ValidateCalls != 1 {
			t.Errorf("expected token resolution before listing, got %d validations", client.ValidateCalls)
		}
	})

	t.Run("Empty Library Propagates EmptyResponse", func(t *testing.T) {
		store := newTestStore(t)
		client := &tu.MockClient{
			SourceValue: models.SourceSpotify,
			ListPlaylistsFunc: func(ctx context.Context, token models.Token) ([]models.Playlist, error) {
				return nil, fmt.Errorf("%w: playlists", shared.ErrEmptyResponse)
			},
		}

		connect(t, store, client)

		if _, err := ListUserPlaylists(context.Background(), store, client, "u1", "a1"); !errors.Is(err, shared.ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})
}

func TestRunner(t *testing.T) {
	t.Run("Waits For Scheduled Jobs", func(t *testing.T) {
		runner := NewRunner(shared.NewLogger(io.Discard))

		done := make(chan struct{})
		runner.Go("job", func(ctx context.Context) error {
			close(done)
			return nil
		})
		runner.Wait()

		select {
		case <-done:
		default:
			t.Error("expected job to have run before Wait returned")
		}
	})

	t.Run("Recovers From Panics", func(t *testing.T) {
		runner := NewRunner(shared.NewLogger(io.Discard))

		runner.Go("bad job", func(ctx context.Context) error {
			panic("boom")
		})
		runner.Wait()
	})

	t.Run("Logs Errors Without Crashing", func(t *testing.T) {
		runner := NewRunner(shared.NewLogger(io.Discard))

		runner.Go("failing job", func(ctx context.Context) error {
			return errors.New("job error")
		})
		runner.Wait()
	})
}
