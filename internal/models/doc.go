// Package models defines the domain entities of the Portify transfer service.
//
// The package contains three categories of types:
//
// 1. Normalized catalog entities produced and consumed by every provider client:
//   - [Playlist] : playlist metadata with the provider-native id
//   - [Album] : album metadata with artist attribution
//   - [Track] : track metadata used for cross-provider matching
//
// 2. Credential types:
//   - [Token] : opaque, provider-specific credential with a serialized form
//   - [SourceToken] : persisted token record keyed by (user, app, source)
//
// 3. Job types:
//   - [Transfer] : a transfer job row with its [TransferStatus] state machine
//
// A provider-native id is only meaningful to the provider that minted it; an
// id from one [Source] is never valid as input to another.
package models
