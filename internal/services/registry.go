package services

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/shared"
)

// Registry resolves a [models.Source] to its provider client. Clients are
// built once from configuration at construction; provider credentials and
// endpoints are injected here, never read from package state.
type Registry struct {
	clients map[models.Source]Client
}

// NewRegistry builds the closed set of provider clients from configuration.
//
// httpClient is shared across providers; pass nil for http.DefaultClient.
func NewRegistry(cfg shared.ProvidersConfig, httpClient *http.Client) *Registry {
	return &Registry{
		clients: map[models.Source]Client{
			models.SourceSpotify: NewSpotifyService(cfg.Spotify, httpClient),
			models.SourceYouTube: NewYouTubeService(cfg.YouTube, httpClient),
		},
	}
}

// NewRegistryWith builds a registry from explicit clients, keyed by their
// own Source. Tests use this to install doubles.
func NewRegistryWith(clients ...Client) *Registry {
	registry := &Registry{clients: make(map[models.Source]Client, len(clients))}
	for _, client := range clients {
		registry.clients[client.Source()] = client
	}
	return registry
}

// Client returns the provider client for a source.
func (r *Registry) Client(source models.Source) (Client, error) {
	client, ok := r.clients[source]
	if !ok {
		return nil, fmt.Errorf("%w: no client for source %q", shared.ErrNotSupported, source)
	}
	return client, nil
}
