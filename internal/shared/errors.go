package shared

import "errors"

var (
	// Provider API errors
	ErrNotSupported    = errors.New("operation not supported by source")
	ErrEmptyResponse   = errors.New("source returned no items")
	ErrInvalidResponse = errors.New("invalid source response")
	ErrUnauthorized    = errors.New("source rejected credentials")
	ErrProvider        = errors.New("source API error")

	// Credential errors
	ErrSourceNotConnected = errors.New("source for user not connected")
	ErrInvalidToken       = errors.New("invalid token")

	// Persistence errors
	ErrNotFound = errors.New("model not found")
	ErrConflict = errors.New("model conflict")

	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")
)
