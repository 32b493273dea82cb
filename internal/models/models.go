package models

import (
	"fmt"
	"time"
)

// Source identifies a music service provider. The set is closed; adding a
// provider means adding a client implementation in the services package.
type Source string

const (
	SourceSpotify Source = "spotify"
	SourceYouTube Source = "youtube"
)

// ParseSource validates a raw source value.
func ParseSource(raw string) (Source, error) {
	switch Source(raw) {
	case SourceSpotify, SourceYouTube:
		return Source(raw), nil
	default:
		return "", fmt.Errorf("unknown source %q", raw)
	}
}

func (s Source) String() string {
	return string(s)
}

// Token is an opaque provider credential. Each provider client pairs with
// exactly one concrete token type; clients reject tokens minted by another
// provider. Serialized blobs are stored verbatim and never logged.
type Token interface {
	// Source returns the provider this token belongs to.
	Source() Source

	// Serialize produces the storage blob for the token.
	Serialize() (string, error)
}

// SourceToken is the persisted credential record for one (user, app, source)
// key. Exactly one row exists per key; connecting again or refreshing
// overwrites TokenData in place.
type SourceToken struct {
	UserID    string
	AppBundle string
	Source    Source
	TokenData string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Playlist is the normalized playlist entity shared by all providers.
type Playlist struct {
	SourceID    string
	Source      Source
	Name        string
	URL         string
	ImageURL    string
	TracksCount int
}

// Album is the normalized album entity shared by all providers.
type Album struct {
	SourceID    string
	Source      Source
	Name        string
	ArtistName  string
	ImageURL    string
	TracksCount int
}

// Track is the normalized track entity shared by all providers.
type Track struct {
	SourceID   string
	Source     Source
	Name       string
	ArtistName string
	ImageURL   string
}
