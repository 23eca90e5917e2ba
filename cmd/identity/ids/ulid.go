// Package ids mints the ULID identifiers used for principals and refresh records.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID string (26 chars).
// A zero now falls back to the wall clock.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
