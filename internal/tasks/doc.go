// Package tasks implements the transfer orchestration engine.
//
// The package composes the provider clients (services), the persistence
// layer (repositories), and the transfer state machine (models) into the
// use cases the HTTP surface exposes:
//
//   - [ConnectSource] stores a user's provider credentials
//   - [CreateTransfer] inserts a queued job and returns its handle
//   - [Engine.RunPlaylistTransfer] and [Engine.RunAlbumTransfer] drive the
//     multi-call copy
//   - [ResolveToken] keeps a stored token valid across a run
//   - listing helpers read playlists, albums and tracks for one provider
//
// Transfer runs execute on the [Runner], a fire-and-forget background
// executor. A run aborts whole-job on the first error: the failure is
// captured into the transfer row before the error is re-surfaced, and any
// destination playlist created before the failure is left as-is.
package tasks
