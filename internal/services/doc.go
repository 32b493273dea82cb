// Package services implements the provider client layer of Portify.
//
// Each music service (Spotify, YouTube Music) gets one [Client]
// implementation that maps the provider's JSON wire shapes onto the
// normalized entities in the models package. Capability gaps are legitimate:
// a provider that has no album concept returns an error matching
// [shared.ErrNotSupported] rather than pretending to succeed.
//
// Clients are constructed through the [Registry], which binds a
// [shared.ProviderConfig] (credentials, endpoints, rate limit) to a source
// at startup. Nothing in this package reads global state.
//
// Error contract shared by every client:
//   - zero items on a read        -> shared.ErrEmptyResponse
//   - schema validation failure   -> shared.ErrInvalidResponse (with detail)
//   - transport-reported 401      -> shared.ErrUnauthorized
//   - unsupported capability      -> shared.ErrNotSupported (with operation)
//   - any other provider failure  -> shared.ErrProvider
package services
