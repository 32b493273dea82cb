// YouTube Music implementation of [Client]
//
// Uses the YouTube Data API v3. YouTube has no album or liked-library
// concept this service can address, so those capabilities report
// [shared.ErrNotSupported].
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	youtubeAuthURL    = "https://accounts.google.com/o/oauth2/auth"
	youtubeTokenURL   = "https://oauth2.googleapis.com/token"
	youtubeBaseURL    = "https://www.googleapis.com"
	youtubeOAuthState = "portify"
	youtubePageLimit  = "50"

	// Music category for track searches
	youtubeMusicCategory = "10"
)

// YouTubeToken is the credential pair Google issues and refreshes. The
// stored field name follows the provider's wire format.
type YouTubeToken struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func (t *YouTubeToken) Source() models.Source {
	return models.SourceYouTube
}

func (t *YouTubeToken) Serialize() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to serialize youtube token: %w", err)
	}
	return string(data), nil
}

// ParseYouTubeToken deserializes a stored token blob.
func ParseYouTubeToken(raw string) (*YouTubeToken, error) {
	var token YouTubeToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}
	if token.Token == "" || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing access or refresh token", shared.ErrInvalidToken)
	}
	return &token, nil
}

// YouTubeThumbnail represents one thumbnail rendition.
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubePlaylist represents a playlist resource.
type YouTubePlaylist struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string                      `json:"title"`
		ChannelTitle string                      `json:"channelTitle"`
		Thumbnails   map[string]YouTubeThumbnail `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		ItemCount int `json:"itemCount"`
	} `json:"contentDetails"`
}

func (p *YouTubePlaylist) validate() error {
	if p.ID == "" || p.Snippet.Title == "" {
		return fmt.Errorf("playlist missing id or title")
	}
	return nil
}

// YouTubePlaylistItem represents a video inside a playlist.
type YouTubePlaylistItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string                      `json:"title"`
		ChannelTitle string                      `json:"channelTitle"`
		PlaylistID   string                      `json:"playlistId"`
		Thumbnails   map[string]YouTubeThumbnail `json:"thumbnails"`
		ResourceID   struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

func (i *YouTubePlaylistItem) validate() error {
	if i.Snippet.ResourceID.VideoID == "" || i.Snippet.Title == "" {
		return fmt.Errorf("playlist item missing video id or title")
	}
	return nil
}

// YouTubeSearchResult represents one search hit.
type YouTubeSearchResult struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

// youtubePage is the list envelope shared by YouTube Data API endpoints.
type youtubePage[T any] struct {
	Items []T `json:"items"`
}

// YouTubeService implements [Client] for the YouTube Data API.
type YouTubeService struct {
	api    *apiClient
	config *oauth2.Config
}

// NewYouTubeService creates a YouTube client from provider configuration.
func NewYouTubeService(cfg shared.ProviderConfig, httpClient *http.Client) *YouTubeService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = youtubeBaseURL
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube",
			"https://www.googleapis.com/auth/youtube.force-ssl",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  youtubeAuthURL,
			TokenURL: youtubeTokenURL,
		},
	}

	return &YouTubeService{
		api:    newAPIClient(baseURL, httpClient, cfg.RateLimit),
		config: config,
	}
}

func (y *YouTubeService) Source() models.Source {
	return models.SourceYouTube
}

// AuthorizeLink returns the OAuth2 authorization URL for user login.
func (y *YouTubeService) AuthorizeLink() string {
	return y.config.AuthCodeURL(youtubeOAuthState, oauth2.AccessTypeOffline)
}

// NewToken builds a YouTube token from a raw access/refresh pair.
func (y *YouTubeService) NewToken(accessToken, refreshToken string) models.Token {
	return &YouTubeToken{Token: accessToken, RefreshToken: refreshToken}
}

// ValidateToken parses a stored blob and proves it against the channels
// endpoint. A 401 or an empty channel list both trigger the refresh flow;
// Google reports some expired grants as empty results rather than 401.
func (y *YouTubeService) ValidateToken(ctx context.Context, raw string) (models.Token, error) {
	token, err := ParseYouTubeToken(raw)
	if err != nil {
		return nil, err
	}

	if err := y.checkChannel(ctx, token); err != nil {
		if !errors.Is(err, shared.ErrUnauthorized) && !errors.Is(err, shared.ErrEmptyResponse) {
			return nil, err
		}
		return y.refreshToken(ctx, token)
	}

	return token, nil
}

// checkChannel performs the cheap authenticated call used for validation.
func (y *YouTubeService) checkChannel(ctx context.Context, token *YouTubeToken) error {
	query := url.Values{"part": {"snippet"}, "mine": {"true"}}

	var page youtubePage[json.RawMessage]
	if err := y.api.request(ctx, http.MethodGet, "/youtube/v3/channels", token.Token, query, nil, &page); err != nil {
		return err
	}
	if len(page.Items) == 0 {
		return fmt.Errorf("%w: channels", shared.ErrEmptyResponse)
	}

	return nil
}

// refreshToken exchanges the refresh token for a fresh access token. Google
// never returns the refresh token back, so the stored one is carried over.
func (y *YouTubeService) refreshToken(ctx context.Context, token *YouTubeToken) (*YouTubeToken, error) {
	form := url.Values{
		"client_id":     {y.config.ClientID},
		"client_secret": {y.config.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
	}

	var response struct {
		AccessToken string `json:"access_token"`
	}
	if err := y.api.postForm(ctx, y.config.Endpoint.TokenURL, form, nil, &response); err != nil {
		return nil, err
	}
	if response.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response missing access_token", shared.ErrInvalidResponse)
	}

	return &YouTubeToken{Token: response.AccessToken, RefreshToken: token.RefreshToken}, nil
}

// ListPlaylists retrieves the user's playlists.
func (y *YouTubeService) ListPlaylists(ctx context.Context, token models.Token) ([]models.Playlist, error) {
	yt, err := youtubeToken(token)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"part":       {"snippet,contentDetails,id"},
		"mine":       {"true"},
		"maxResults": {youtubePageLimit},
	}

	var page youtubePage[YouTubePlaylist]
	if err := y.api.request(ctx, http.MethodGet, "/youtube/v3/playlists", yt.Token, query, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: playlists", shared.ErrEmptyResponse)
	}

	playlists := make([]models.Playlist, len(page.Items))
	for i, yp := range page.Items {
		if err := yp.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
		}
		playlists[i] = y.playlistToDomain(yp)
	}

	return playlists, nil
}

// ListAlbums is unsupported: YouTube has no album library.
func (y *YouTubeService) ListAlbums(ctx context.Context, token models.Token) ([]models.Album, error) {
	return nil, notSupported(models.SourceYouTube, "list albums")
}

// ListFavoriteTracks is unsupported: liked videos are not reachable through
// the playlist surface this service uses.
func (y *YouTubeService) ListFavoriteTracks(ctx context.Context, token models.Token) ([]models.Track, error) {
	return nil, notSupported(models.SourceYouTube, "list favorite tracks")
}

// ListPlaylistTracks retrieves the videos of one playlist.
func (y *YouTubeService) ListPlaylistTracks(ctx context.Context, token models.Token, playlistID string) ([]models.Track, error) {
	yt, err := youtubeToken(token)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"part":       {"snippet"},
		"playlistId": {playlistID},
		"maxResults": {youtubePageLimit},
	}

	var page youtubePage[YouTubePlaylistItem]
	if err := y.api.request(ctx, http.MethodGet, "/youtube/v3/playlistItems", yt.Token, query, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: playlist items", shared.ErrEmptyResponse)
	}

	tracks := make([]models.Track, len(page.Items))
	for i, item := range page.Items {
		if err := item.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
		}
		tracks[i] = y.trackToDomain(item)
	}

	return tracks, nil
}

// CreatePlaylist creates an empty playlist with the given title.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, token models.Token, name string) (*models.Playlist, error) {
	yt, err := youtubeToken(token)
	if err != nil {
		return nil, err
	}

	query := url.Values{"part": {"snippet"}}
	body := map[string]any{"snippet": map[string]string{"title": name}}

	var created YouTubePlaylist
	if err := y.api.request(ctx, http.MethodPost, "/youtube/v3/playlists", yt.Token, query, body, &created); err != nil {
		return nil, err
	}
	if err := created.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}

	playlist := y.playlistToDomain(created)
	return &playlist, nil
}

// AddAlbum is unsupported: YouTube has no album library.
func (y *YouTubeService) AddAlbum(ctx context.Context, token models.Token, name, artist string) error {
	return notSupported(models.SourceYouTube, "add album")
}

// AddTracksToPlaylist inserts videos into a playlist. The Data API accepts
// one playlist item per call, so ids are inserted sequentially in order.
func (y *YouTubeService) AddTracksToPlaylist(ctx context.Context, token models.Token, playlistID string, trackIDs ...string) error {
	yt, err := youtubeToken(token)
	if err != nil {
		return err
	}

	query := url.Values{"part": {"snippet"}}
	for _, trackID := range trackIDs {
		body := map[string]any{
			"snippet": map[string]any{
				"playlistId": playlistID,
				"resourceId": map[string]string{
					"kind":    "youtube#video",
					"videoId": trackID,
				},
			},
		}

		if err := y.api.request(ctx, http.MethodPost, "/youtube/v3/playlistItems", yt.Token, query, body, nil); err != nil {
			return fmt.Errorf("failed to add video %s: %w", trackID, err)
		}
	}

	return nil
}

// SearchTrack resolves (name, artist) to the video id of the best match in
// the music category.
func (y *YouTubeService) SearchTrack(ctx context.Context, token models.Token, name, artist string) (string, error) {
	yt, err := youtubeToken(token)
	if err != nil {
		return "", err
	}

	query := url.Values{
		"part":            {"snippet"},
		"q":               {name + " " + artist},
		"type":            {"video"},
		"videoCategoryId": {youtubeMusicCategory},
		"maxResults":      {"1"},
	}

	var page youtubePage[YouTubeSearchResult]
	if err := y.api.request(ctx, http.MethodGet, "/youtube/v3/search", yt.Token, query, nil, &page); err != nil {
		return "", err
	}
	if len(page.Items) == 0 {
		return "", fmt.Errorf("%w: no match for %q by %q", shared.ErrEmptyResponse, name, artist)
	}

	result := page.Items[0]
	if result.ID.VideoID == "" {
		return "", fmt.Errorf("%w: search result missing video id", shared.ErrInvalidResponse)
	}

	return result.ID.VideoID, nil
}

func (y *YouTubeService) playlistToDomain(yp YouTubePlaylist) models.Playlist {
	playlist := models.Playlist{
		SourceID:    yp.ID,
		Source:      models.SourceYouTube,
		Name:        yp.Snippet.Title,
		TracksCount: yp.ContentDetails.ItemCount,
	}
	playlist.ImageURL = firstThumbnail(yp.Snippet.Thumbnails)
	return playlist
}

func (y *YouTubeService) trackToDomain(item YouTubePlaylistItem) models.Track {
	return models.Track{
		SourceID:   item.Snippet.ResourceID.VideoID,
		Source:     models.SourceYouTube,
		Name:       item.Snippet.Title,
		ArtistName: item.Snippet.ChannelTitle,
		ImageURL:   firstThumbnail(item.Snippet.Thumbnails),
	}
}

// youtubeToken asserts the paired token type at the client boundary.
func youtubeToken(token models.Token) (*YouTubeToken, error) {
	yt, ok := token.(*YouTubeToken)
	if !ok {
		return nil, fmt.Errorf("%w: expected youtube token, got %s", shared.ErrInvalidToken, token.Source())
	}
	return yt, nil
}

// firstThumbnail picks any rendition; the API keys renditions by size name
// and every rendition serves as a preview image.
func firstThumbnail(thumbnails map[string]YouTubeThumbnail) string {
	for _, preferred := range []string{"default", "medium", "high"} {
		if t, ok := thumbnails[preferred]; ok {
			return t.URL
		}
	}
	for _, t := range thumbnails {
		return t.URL
	}
	return ""
}
