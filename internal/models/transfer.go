package models

import (
	"fmt"
	"time"
)

// TransferStatus is the lifecycle state of a transfer job.
type TransferStatus string

const (
	TransferQueued   TransferStatus = "queued"
	TransferStarted  TransferStatus = "started"
	TransferFinished TransferStatus = "finished"
	TransferFailed   TransferStatus = "failed"
)

// ParseTransferStatus validates a raw status value.
func ParseTransferStatus(raw string) (TransferStatus, error) {
	switch TransferStatus(raw) {
	case TransferQueued, TransferStarted, TransferFinished, TransferFailed:
		return TransferStatus(raw), nil
	default:
		return "", fmt.Errorf("unknown transfer status %q", raw)
	}
}

// Terminal reports whether no further transition is permitted out of s.
func (s TransferStatus) Terminal() bool {
	return s == TransferFinished || s == TransferFailed
}

// CanTransition reports whether the status graph permits moving from s to
// next. queued -> started -> finished|failed; terminal states accept
// nothing, and started can never be skipped.
func (s TransferStatus) CanTransition(next TransferStatus) bool {
	switch s {
	case TransferQueued:
		return next == TransferStarted
	case TransferStarted:
		return next == TransferFinished || next == TransferFailed
	default:
		return false
	}
}

// TransferKind distinguishes what a transfer job moves.
type TransferKind string

const (
	TransferKindPlaylist TransferKind = "playlist"
	TransferKindAlbum    TransferKind = "album"
)

// Transfer is a transfer job row. It is created once with status queued,
// mutated only by the orchestrator run that owns it, and never deleted.
//
// Result holds the provider-native description of what was created and is
// set only on finished; Error is set only on failed.
type Transfer struct {
	ID         string
	Kind       TransferKind
	FromSource Source
	ToSource   Source
	Status     TransferStatus
	Error      string
	Result     string
	UserID     string
	AppBundle  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
