package session

import (
	"context"
	"time"

	"shopauth/cmd/identity"
)

// Record mirrors one refresh_tokens row. Records are never updated in place:
// a record is created, then either consumed or swept.
type Record struct {
	ID          string
	PrincipalID string
	TokenHash   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Live reports whether the record can still be exchanged at now.
func (r Record) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// Store abstracts persistence for refresh records.
//
// Consume is a find-and-delete: of any number of concurrent callers presenting
// the same digest, at most one receives the record.
type Store interface {
	// Create inserts a new record.
	Create(ctx context.Context, rec Record) error

	// Consume removes and returns the live record matching tokenHash.
	// Missing or expired records yield ErrRecordNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (Record, error)

	// Delete removes the record matching tokenHash, live or not. Idempotent.
	Delete(ctx context.Context, tokenHash string) error

	// SweepExpired deletes every record with expires_at <= now and returns the count.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	// WithTx runs fn in one transaction: committed when fn returns nil,
	// rolled back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view used by rotation.
type Tx interface {
	Consume(ctx context.Context, tokenHash string, now time.Time) (Record, error)
	Create(ctx context.Context, rec Record) error
	PrincipalByID(ctx context.Context, id string) (identity.Principal, error)
}

func validateRecord(rec Record) error {
	if rec.ID == "" || rec.PrincipalID == "" || len(rec.TokenHash) != 64 {
		return ErrInvalidRecord
	}
	if !rec.ExpiresAt.After(rec.CreatedAt) {
		return ErrInvalidRecord
	}
	return nil
}
