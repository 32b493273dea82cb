package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/portify/internal/shared"
)

func newYouTube(srv *httptest.Server) *YouTubeService {
	return NewYouTubeService(shared.ProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BaseURL:      srv.URL,
		RateLimit:    1000,
	}, srv.Client())
}

func TestParseYouTubeToken(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid pair", `{"token":"a","refresh_token":"r"}`, false},
		{"missing refresh", `{"token":"a"}`, true},
		{"wrong field name", `{"access_token":"a","refresh_token":"r"}`, true},
		{"not json", `nope`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ParseYouTubeToken(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidToken) {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.Token != "a" || token.RefreshToken != "r" {
				t.Errorf("unexpected token %+v", token)
			}
		})
	}
}

func TestYouTubeService(t *testing.T) {
	t.Run("Unsupported Capabilities", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		svc := newYouTube(srv)
		token := svc.NewToken("a", "r")

		if _, err := svc.ListAlbums(context.Background(), token); !errors.Is(err, shared.ErrNotSupported) {
			t.Errorf("expected ErrNotSupported for albums, got %v", err)
		}
		if _, err := svc.ListFavoriteTracks(context.Background(), token); !errors.Is(err, shared.ErrNotSupported) {
			t.Errorf("expected ErrNotSupported for favorites, got %v", err)
		}
		if err := svc.AddAlbum(context.Background(), token, "Blue", "Miles Davis"); !errors.Is(err, shared.ErrNotSupported) {
			t.Errorf("expected ErrNotSupported for add album, got %v", err)
		}
	})

	t.Run("ValidateToken", func(t *testing.T) {
		t.Run("Valid Token Returned Unchanged", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"items":[{"id":"ch1"}]}`))
			}))
			defer srv.Close()

			token, err := newYouTube(srv).ValidateToken(context.Background(), `{"token":"a","refresh_token":"r"}`)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if yt := token.(*YouTubeToken); yt.Token != "a" {
				t.Errorf("expected original token, got %q", yt.Token)
			}
		})

		t.Run("Empty Channel List Triggers Refresh", func(t *testing.T) {
			client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				if r.URL.Path == "/youtube/v3/channels" {
					return jsonResponse(http.StatusOK, youtubePage[json.RawMessage]{}), nil
				}
				if r.URL.Host == "oauth2.googleapis.com" {
					return jsonResponse(http.StatusOK, map[string]string{"access_token": "fresh"}), nil
				}
				t.Errorf("unexpected request to %s", r.URL)
				return jsonResponse(http.StatusNotFound, nil), nil
			})}

			svc := NewYouTubeService(shared.ProviderConfig{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				BaseURL:      "http://youtube.local",
				RateLimit:    1000,
			}, client)

			token, err := svc.ValidateToken(context.Background(), `{"token":"stale","refresh_token":"r"}`)
			if err != nil {
				t.Fatalf("expected refresh to succeed, got %v", err)
			}

			yt := token.(*YouTubeToken)
			if yt.Token != "fresh" {
				t.Errorf("expected refreshed token, got %q", yt.Token)
			}
			if yt.RefreshToken != "r" {
				t.Errorf("expected refresh token carried over, got %q", yt.RefreshToken)
			}
		})
	})

	t.Run("ListPlaylists", func(t *testing.T) {
		t.Run("Normalizes Items", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/youtube/v3/playlists" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("mine"); got != "true" {
					t.Errorf("expected mine=true, got %q", got)
				}
				w.Write([]byte(`{"items":[{"id":"yp1","snippet":{"title":"Mix"},"contentDetails":{"itemCount":3}}]}`))
			}))
			defer srv.Close()

			svc := newYouTube(srv)
			playlists, err := svc.ListPlaylists(context.Background(), svc.NewToken("a", "r"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			got := playlists[0]
			if got.SourceID != "yp1" || got.Name != "Mix" || got.Source != "youtube" || got.TracksCount != 3 {
				t.Errorf("unexpected playlist %+v", got)
			}
		})

		t.Run("Zero Items", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"items":[]}`))
			}))
			defer srv.Close()

			svc := newYouTube(srv)
			if _, err := svc.ListPlaylists(context.Background(), svc.NewToken("a", "r")); !errors.Is(err, shared.ErrEmptyResponse) {
				t.Errorf("expected ErrEmptyResponse, got %v", err)
			}
		})
	})

	t.Run("ListPlaylistTracks", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("playlistId"); got != "yp1" {
				t.Errorf("expected playlistId=yp1, got %q", got)
			}
			w.Write([]byte(`{"items":[{"id":"i1","snippet":{"title":"Song A","channelTitle":"Art1","resourceId":{"kind":"youtube#video","videoId":"v1"}}}]}`))
		}))
		defer srv.Close()

		svc := newYouTube(srv)
		tracks, err := svc.ListPlaylistTracks(context.Background(), svc.NewToken("a", "r"), "yp1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got := tracks[0]
		if got.SourceID != "v1" || got.Name != "Song A" || got.ArtistName != "Art1" {
			t.Errorf("unexpected track %+v", got)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Snippet struct {
					Title string `json:"title"`
				} `json:"snippet"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			w.Write([]byte(`{"id":"np1","snippet":{"title":"` + body.Snippet.Title + `"}}`))
		}))
		defer srv.Close()

		svc := newYouTube(srv)
		created, err := svc.CreatePlaylist(context.Background(), svc.NewToken("a", "r"), "Transferred 2024-01-01")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if created.SourceID != "np1" || created.Name != "Transferred 2024-01-01" {
			t.Errorf("unexpected playlist %+v", created)
		}
	})

	t.Run("AddTracksToPlaylist", func(t *testing.T) {
		t.Run("One Insert Per Video", func(t *testing.T) {
			var inserted []string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Snippet struct {
						PlaylistID string `json:"playlistId"`
						ResourceID struct {
							VideoID string `json:"videoId"`
						} `json:"resourceId"`
					} `json:"snippet"`
				}
				json.NewDecoder(r.Body).Decode(&body)
				if body.Snippet.PlaylistID != "yp1" {
					t.Errorf("expected playlist yp1, got %q", body.Snippet.PlaylistID)
				}
				inserted = append(inserted, body.Snippet.ResourceID.VideoID)
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			svc := newYouTube(srv)
			if err := svc.AddTracksToPlaylist(context.Background(), svc.NewToken("a", "r"), "yp1", "v1", "v2"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(inserted) != 2 || inserted[0] != "v1" || inserted[1] != "v2" {
				t.Errorf("expected ordered inserts, got %v", inserted)
			}
		})
	})

	t.Run("SearchTrack", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("videoCategoryId"); got != youtubeMusicCategory {
				t.Errorf("expected music category, got %q", got)
			}
			w.Write([]byte(`{"items":[{"id":{"kind":"youtube#video","videoId":"v9"}}]}`))
		}))
		defer srv.Close()

		svc := newYouTube(srv)
		id, err := svc.SearchTrack(context.Background(), svc.NewToken("a", "r"), "Song", "Artist")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "v9" {
			t.Errorf("expected video id, got %q", id)
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Resolves Configured Sources", func(t *testing.T) {
		registry := NewRegistry(shared.ProvidersConfig{}, nil)

		spotify, err := registry.Client("spotify")
		if err != nil {
			t.Fatalf("expected spotify client, got %v", err)
		}
		if spotify.Source() != "spotify" {
			t.Errorf("unexpected source %s", spotify.Source())
		}

		youtube, err := registry.Client("youtube")
		if err != nil {
			t.Fatalf("expected youtube client, got %v", err)
		}
		if youtube.Source() != "youtube" {
			t.Errorf("unexpected source %s", youtube.Source())
		}
	})

	t.Run("Unknown Source", func(t *testing.T) {
		registry := NewRegistry(shared.ProvidersConfig{}, nil)
		if _, err := registry.Client("tidal"); !errors.Is(err, shared.ErrNotSupported) {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
	})
}
