package identity

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
)

// OpError is a typed operation error with a stable Op + Kind contract for callers/tests.
// Msg may include human-readable context; it never includes secrets.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// ConflictError reports a uniqueness conflict for a logical field ("email", "id").
type ConflictError struct {
	Op    string
	Field string
}

func (e ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrConflict)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrConflict, e.Field)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func notFound(op string) error {
	return OpError{Op: op, Kind: ErrNotFound}
}

func invalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}
