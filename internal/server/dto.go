package server

import (
	"encoding/json"
	"net/http"

	"github.com/desertthunder/portify/internal/models"
)

// connectRequest is the POST /source/connect body.
type connectRequest struct {
	UserID       string `json:"user_id"`
	AppBundle    string `json:"app_bundle"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// playlistTransferRequest is the POST /playlist body.
type playlistTransferRequest struct {
	UserID     string `json:"user_id"`
	AppBundle  string `json:"app_bundle"`
	FromSource string `json:"from_source"`
	ToSource   string `json:"to_source"`
	PlaylistID string `json:"playlist_id"`
}

// albumTransferRequest is the POST /album body.
type albumTransferRequest struct {
	UserID     string `json:"user_id"`
	AppBundle  string `json:"app_bundle"`
	FromSource string `json:"from_source"`
	ToSource   string `json:"to_source"`
	AlbumID    string `json:"album_id"`
}

// transferCreatedResponse acknowledges a scheduled transfer.
type transferCreatedResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	UserID    string `json:"user_id"`
	AppBundle string `json:"app_bundle"`
}

// transferResponse is the GET /{transfer_id} body.
type transferResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Result    string `json:"result,omitempty"`
	UserID    string `json:"user_id"`
	AppBundle string `json:"app_bundle"`
}

// playlistResponse is one playlist in a listing.
type playlistResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Source   string `json:"source"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// albumResponse is one album in a listing.
type albumResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Source   string `json:"source"`
	ImageURL string `json:"image_url,omitempty"`
}

// trackResponse is one track in a listing.
type trackResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	ImageURL string `json:"image_url,omitempty"`
}

func toPlaylistResponses(playlists []models.Playlist) []playlistResponse {
	out := make([]playlistResponse, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, playlistResponse{
			ID:       p.SourceID,
			Name:     p.Name,
			Source:   string(p.Source),
			URL:      p.URL,
			ImageURL: p.ImageURL,
		})
	}
	return out
}

func toAlbumResponses(albums []models.Album) []albumResponse {
	out := make([]albumResponse, 0, len(albums))
	for _, a := range albums {
		out = append(out, albumResponse{
			ID:       a.SourceID,
			Name:     a.Name,
			Source:   string(a.Source),
			ImageURL: a.ImageURL,
		})
	}
	return out
}

func toTrackResponses(tracks []models.Track) []trackResponse {
	out := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, trackResponse{
			ID:       t.SourceID,
			Name:     t.Name,
			Artist:   t.ArtistName,
			ImageURL: t.ImageURL,
		})
	}
	return out
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
