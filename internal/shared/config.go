package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Providers ProvidersConfig `toml:"providers"`
}

// ServerConfig contains HTTP server settings.
//
// APIToken guards every inbound request via the Api-Token header.
type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	APIToken string `toml:"api_token"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ProvidersConfig contains per-source API credentials.
type ProvidersConfig struct {
	Spotify ProviderConfig `toml:"spotify"`
	YouTube ProviderConfig `toml:"youtube"`
}

// ProviderConfig contains OAuth credentials and endpoint overrides for a single source.
//
// BaseURL is overridable so tests can point a client at a local server.
type ProviderConfig struct {
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	RedirectURI  string  `toml:"redirect_uri"`
	BaseURL      string  `toml:"base_url"`
	RateLimit    float64 `toml:"rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// A .env file in the working directory is loaded first; environment variables
// override the credential fields so secrets can stay out of the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overlays environment variables onto credential and token fields.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	overrides := map[string]*string{
		"PORTIFY_API_TOKEN":     &c.Server.APIToken,
		"SPOTIFY_CLIENT_ID":     &c.Providers.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Providers.Spotify.ClientSecret,
		"YOUTUBE_CLIENT_ID":     &c.Providers.YouTube.ClientID,
		"YOUTUBE_CLIENT_SECRET": &c.Providers.YouTube.ClientSecret,
	}

	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
}
