// Spotify implementation of [Client]
//
// Wire shapes follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL    = "https://accounts.spotify.com/authorize"
	spotifyTokenURL   = "https://accounts.spotify.com/api/token"
	spotifyBaseURL    = "https://api.spotify.com"
	spotifyOAuthState = "portify"
	spotifyPageLimit  = "50"
)

// SpotifyToken is the credential pair Spotify issues and refreshes.
type SpotifyToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (t *SpotifyToken) Source() models.Source {
	return models.SourceSpotify
}

func (t *SpotifyToken) Serialize() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to serialize spotify token: %w", err)
	}
	return string(data), nil
}

// ParseSpotifyToken deserializes a stored token blob.
func ParseSpotifyToken(raw string) (*SpotifyToken, error) {
	var token SpotifyToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}
	if token.AccessToken == "" || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing access or refresh token", shared.ErrInvalidToken)
	}
	return &token, nil
}

// SpotifyUser represents the current-user profile, fetched as the cheap
// token validation call.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	URI         string `json:"uri"`
}

func (u *SpotifyUser) validate() error {
	if u.ID == "" {
		return fmt.Errorf("user missing id")
	}
	return nil
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	URI    string         `json:"uri"`
	Images []SpotifyImage `json:"images"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

func (p *SpotifyPlaylist) validate() error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("playlist missing id or name")
	}
	return nil
}

// SpotifyArtist represents an artist reference inside tracks and albums.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a track object, as nested in playlist items,
// saved-track items, and search results.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	URI     string          `json:"uri"`
	Artists []SpotifyArtist `json:"artists"`
}

func (t *SpotifyTrack) validate() error {
	if t.ID == "" || t.Name == "" {
		return fmt.Errorf("track missing id or name")
	}
	return nil
}

// SpotifyTrackItem wraps a track in the playlist/saved-tracks envelope.
type SpotifyTrackItem struct {
	Track SpotifyTrack `json:"track"`
}

// SpotifyAlbum represents an album object inside saved-album items and
// search results.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	URI         string          `json:"uri"`
	TotalTracks int             `json:"total_tracks"`
	Artists     []SpotifyArtist `json:"artists"`
	Images      []SpotifyImage  `json:"images"`
}

func (a *SpotifyAlbum) validate() error {
	if a.ID == "" || a.Name == "" {
		return fmt.Errorf("album missing id or name")
	}
	return nil
}

// SpotifyAlbumItem wraps an album in the saved-albums envelope.
type SpotifyAlbumItem struct {
	Album SpotifyAlbum `json:"album"`
}

// spotifyPage is the paginated envelope shared by Spotify list endpoints.
type spotifyPage[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SpotifyService implements [Client] for the Spotify Web API.
type SpotifyService struct {
	api    *apiClient
	config *oauth2.Config
}

// NewSpotifyService creates a Spotify client from provider configuration.
//
// cfg.BaseURL overrides the production API host, which tests use to point
// the client at a local server.
func NewSpotifyService(cfg shared.ProviderConfig, httpClient *http.Client) *SpotifyService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
			"user-read-private",
			"user-library-read",
			"user-library-modify",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		api:    newAPIClient(baseURL, httpClient, cfg.RateLimit),
		config: config,
	}
}

func (s *SpotifyService) Source() models.Source {
	return models.SourceSpotify
}

// AuthorizeLink returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthorizeLink() string {
	return s.config.AuthCodeURL(spotifyOAuthState, oauth2.AccessTypeOffline)
}

// NewToken builds a Spotify token from a raw access/refresh pair.
func (s *SpotifyService) NewToken(accessToken, refreshToken string) models.Token {
	return &SpotifyToken{AccessToken: accessToken, RefreshToken: refreshToken}
}

// ValidateToken parses a stored blob and proves it against GET /v1/me,
// running the refresh flow when the provider reports 401.
func (s *SpotifyService) ValidateToken(ctx context.Context, raw string) (models.Token, error) {
	token, err := ParseSpotifyToken(raw)
	if err != nil {
		return nil, err
	}

	if _, err := s.me(ctx, token.AccessToken); err != nil {
		if !errors.Is(err, shared.ErrUnauthorized) {
			return nil, err
		}
		return s.refreshToken(ctx, token)
	}

	return token, nil
}

// refreshToken exchanges the refresh token for a fresh access token.
func (s *SpotifyService) refreshToken(ctx context.Context, token *SpotifyToken) (*SpotifyToken, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
		"client_id":     {s.config.ClientID},
	}

	headers := http.Header{}
	headers.Set("Authorization", basicAuthHeader(s.config.ClientID, s.config.ClientSecret))

	var refreshed SpotifyToken
	if err := s.api.postForm(ctx, s.config.Endpoint.TokenURL, form, headers, &refreshed); err != nil {
		return nil, err
	}

	if refreshed.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response missing access_token", shared.ErrInvalidResponse)
	}
	// Spotify omits the refresh token when it is still valid
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	return &refreshed, nil
}

// me retrieves the current authenticated user's profile.
func (s *SpotifyService) me(ctx context.Context, bearer string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.api.request(ctx, http.MethodGet, "/v1/me", bearer, nil, nil, &user); err != nil {
		return nil, err
	}
	if err := user.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return &user, nil
}

// ListPlaylists retrieves the user's playlists.
func (s *SpotifyService) ListPlaylists(ctx context.Context, token models.Token) ([]models.Playlist, error) {
	st, err := spotifyToken(token)
	if err != nil {
		return nil, err
	}

	var page spotifyPage[SpotifyPlaylist]
	query := url.Values{"limit": {spotifyPageLimit}}
	if err := s.api.request(ctx, http.MethodGet, "/v1/me/playlists", st.AccessToken, query, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: playlists", shared.ErrEmptyResponse)
	}

	playlists := make([]models.Playlist, len(page.Items))
	for i, sp := range page.Items {
		if err := sp.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
		}
		playlists[i] = s.playlistToDomain(sp)
	}

	return playlists, nil
}

// ListAlbums retrieves the user's saved albums.
func (s *SpotifyService) ListAlbums(ctx context.Context, token models.Token) ([]models.Album, error) {
	st, err := spotifyToken(token)
	if err != nil {
		return nil, err
	}

	var page spotifyPage[SpotifyAlbumItem]
	query := url.Values{"limit": {spotifyPageLimit}}
	if err := s.api.request(ctx, http.MethodGet, "/v1/me/albums", st.AccessToken, query, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: albums", shared.ErrEmptyResponse)
	}

	albums := make([]models.Album, len(page.Items))
	for i, item := range page.Items {
		if err := item.Album.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
		}
		albums[i] = s.albumToDomain(item.Album)
	}

	return albums, nil
}

// ListPlaylistTracks retrieves the tracks of one playlist.
func (s *SpotifyService) ListPlaylistTracks(ctx context.Context, token models.Token, playlistID string) ([]models.Track, error) {
	st, err := spotifyToken(token)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/v1/playlists/%s/tracks", playlistID)
	return s.listTracks(ctx, st, endpoint)
}

// ListFavoriteTracks retrieves the user's saved tracks.
func (s *SpotifyService) ListFavoriteTracks(ctx context.Context, token models.Token) ([]models.Track, error) {
	st, err := spotifyToken(token)
	if err != nil {
		return nil, err
	}

	return s.listTracks(ctx, st, "/v1/me/tracks")
}

// listTracks fetches a track-item page and normalizes it. Playlist tracks
// and saved tracks share the same envelope.
func (s *SpotifyService) listTracks(ctx context.Context, token *SpotifyToken, endpoint string) ([]models.Track, error) {
	var page spotifyPage[SpotifyTrackItem]
	query := url.Values{"limit": {spotifyPageLimit}}
	if err := s.api.request(ctx, http.MethodGet, endpoint, token.AccessToken, query, nil, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: tracks", shared.ErrEmptyResponse)
	}

	tracks := make([]models.Track, len(page.Items))
	for i, item := range page.Items {
		if err := item.Track.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
		}
		tracks[i] = s.trackToDomain(item.Track)
	}

	return tracks, nil
}

// CreatePlaylist creates an empty playlist owned by the current user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, token models.Token, name string) (*models.Playlist, error) {
	st, err := spotifyToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.me(ctx, st.AccessToken)
	if err != nil {
		return nil, err
	}

	body := map[string]string{"name": name}
	endpoint := fmt.Sprintf("/v1/users/%s/playlists", user.ID)

	var created SpotifyPlaylist
	if err := s.api.request(ctx, http.MethodPost, endpoint, st.AccessToken, nil, body, &created); err != nil {
		return nil, err
	}
	if err := created.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}

	playlist := s.playlistToDomain(created)
	return &playlist, nil
}

// AddAlbum resolves (name, artist) through album search and saves the match
// to the user's library.
func (s *SpotifyService) AddAlbum(ctx context.Context, token models.Token, name, artist string) error {
	st, err := spotifyToken(token)
	if err != nil {
		return err
	}

	albumID, err := s.searchAlbum(ctx, st, name, artist)
	if err != nil {
		return err
	}

	body := map[string][]string{"ids": {albumID}}
	return s.api.request(ctx, http.MethodPut, "/v1/me/albums", st.AccessToken, nil, body, nil)
}

// AddTracksToPlaylist adds the given track URIs to a playlist in one call.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, token models.Token, playlistID string, trackIDs ...string) error {
	st, err := spotifyToken(token)
	if err != nil {
		return err
	}

	body := map[string][]string{"uris": trackIDs}
	endpoint := fmt.Sprintf("/v1/playlists/%s/tracks", playlistID)
	return s.api.request(ctx, http.MethodPost, endpoint, st.AccessToken, nil, body, nil)
}

// SearchTrack resolves (name, artist) to the URI of the best track match.
// Spotify's add-tracks endpoint consumes URIs, so the URI is the
// provider-native id here.
func (s *SpotifyService) SearchTrack(ctx context.Context, token models.Token, name, artist string) (string, error) {
	st, err := spotifyToken(token)
	if err != nil {
		return "", err
	}

	query := url.Values{
		"q":     {name + " " + artist},
		"type":  {"track"},
		"limit": {"1"},
	}

	var response struct {
		Tracks spotifyPage[SpotifyTrack] `json:"tracks"`
	}
	if err := s.api.request(ctx, http.MethodGet, "/v1/search", st.AccessToken, query, nil, &response); err != nil {
		return "", err
	}
	if len(response.Tracks.Items) == 0 {
		return "", fmt.Errorf("%w: no match for %q by %q", shared.ErrEmptyResponse, name, artist)
	}

	track := response.Tracks.Items[0]
	if err := track.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}

	return track.URI, nil
}

// searchAlbum resolves (name, artist) to an album id.
func (s *SpotifyService) searchAlbum(ctx context.Context, token *SpotifyToken, name, artist string) (string, error) {
	query := url.Values{
		"q":     {artist + " " + name},
		"type":  {"album"},
		"limit": {"1"},
	}

	var response struct {
		Albums spotifyPage[SpotifyAlbum] `json:"albums"`
	}
	if err := s.api.request(ctx, http.MethodGet, "/v1/search", token.AccessToken, query, nil, &response); err != nil {
		return "", err
	}
	if len(response.Albums.Items) == 0 {
		return "", fmt.Errorf("%w: no match for album %q by %q", shared.ErrEmptyResponse, name, artist)
	}

	album := response.Albums.Items[0]
	if err := album.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}

	return album.ID, nil
}

func (s *SpotifyService) playlistToDomain(sp SpotifyPlaylist) models.Playlist {
	playlist := models.Playlist{
		SourceID:    sp.ID,
		Source:      models.SourceSpotify,
		Name:        sp.Name,
		TracksCount: sp.Tracks.Total,
	}
	if len(sp.Images) > 0 {
		playlist.ImageURL = sp.Images[len(sp.Images)-1].URL
	}
	return playlist
}

func (s *SpotifyService) albumToDomain(sa SpotifyAlbum) models.Album {
	album := models.Album{
		SourceID:    sa.ID,
		Source:      models.SourceSpotify,
		Name:        sa.Name,
		ArtistName:  joinArtists(sa.Artists),
		TracksCount: sa.TotalTracks,
	}
	if len(sa.Images) > 0 {
		album.ImageURL = sa.Images[len(sa.Images)-1].URL
	}
	return album
}

func (s *SpotifyService) trackToDomain(st SpotifyTrack) models.Track {
	return models.Track{
		SourceID:   st.ID,
		Source:     models.SourceSpotify,
		Name:       st.Name,
		ArtistName: joinArtists(st.Artists),
	}
}

// spotifyToken asserts the paired token type at the client boundary.
func spotifyToken(token models.Token) (*SpotifyToken, error) {
	st, ok := token.(*SpotifyToken)
	if !ok {
		return nil, fmt.Errorf("%w: expected spotify token, got %s", shared.ErrInvalidToken, token.Source())
	}
	return st, nil
}

func joinArtists(artists []SpotifyArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, " ")
}

