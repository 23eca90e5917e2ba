package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when an access token fails verification for any reason.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidRefreshToken is returned when a refresh token is unknown, expired,
	// already consumed, or its owner no longer exists.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrRecordNotFound is returned by stores when no live record matches a digest.
	ErrRecordNotFound = errors.New("refresh record not found")

	// ErrInvalidRecord is returned when a record is missing fields or already expired at creation.
	ErrInvalidRecord = errors.New("invalid refresh record")

	// ErrDuplicateRecord is returned when a token digest is already stored.
	ErrDuplicateRecord = errors.New("duplicate refresh record")

	// ErrTransientStore marks infrastructure failures that are safe to retry.
	ErrTransientStore = errors.New("transient store failure")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// TransientError wraps a retryable store failure.
// errors.Is matches both ErrTransientStore and the underlying cause.
type TransientError struct {
	Op  string
	Err error
}

func (e TransientError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrTransientStore, e.Err)
}

func (e TransientError) Unwrap() []error { return []error{ErrTransientStore, e.Err} }
