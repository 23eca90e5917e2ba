package session

import (
	"context"
	"sync"
	"time"

	"shopauth/cmd/identity"
)

// MemoryStore is an in-process Store for dev mode and tests.
//
// Transactions are serialized by a single mutex and stage their writes, so a
// WithTx whose fn fails leaves no trace.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record // by token hash
	users   identity.Directory
}

// NewMemoryStore returns an empty store resolving principals through users.
func NewMemoryStore(users identity.Directory) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		users:   users,
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.records[rec.TokenHash]; dup {
		return ErrDuplicateRecord
	}
	s.records[rec.TokenHash] = rec
	return nil
}

// Consume implements Store.
func (s *MemoryStore) Consume(ctx context.Context, tokenHash string, now time.Time) (Record, error) {
	var out Record
	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		rec, err := tx.Consume(ctx, tokenHash, now)
		out = rec
		return err
	})
	return out, err
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, tokenHash)
	return nil
}

// SweepExpired implements Store.
func (s *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for h, rec := range s.records {
		if !rec.Live(now) {
			delete(s.records, h)
			n++
		}
	}
	return n, nil
}

// WithTx implements Store.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		s:       s,
		deleted: make(map[string]struct{}),
		created: make(map[string]Record),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for h := range tx.deleted {
		delete(s.records, h)
	}
	for h, rec := range tx.created {
		s.records[h] = rec
	}
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// memoryTx runs with s.mu held.
type memoryTx struct {
	s       *MemoryStore
	deleted map[string]struct{}
	created map[string]Record
}

func (t *memoryTx) Consume(ctx context.Context, tokenHash string, now time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if rec, ok := t.created[tokenHash]; ok && rec.Live(now) {
		delete(t.created, tokenHash)
		return rec, nil
	}
	if _, gone := t.deleted[tokenHash]; gone {
		return Record{}, ErrRecordNotFound
	}
	rec, ok := t.s.records[tokenHash]
	if !ok || !rec.Live(now) {
		return Record{}, ErrRecordNotFound
	}
	t.deleted[tokenHash] = struct{}{}
	return rec, nil
}

func (t *memoryTx) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(rec); err != nil {
		return err
	}
	if _, dup := t.created[rec.TokenHash]; dup {
		return ErrDuplicateRecord
	}
	if _, exists := t.s.records[rec.TokenHash]; exists {
		if _, gone := t.deleted[rec.TokenHash]; !gone {
			return ErrDuplicateRecord
		}
	}
	t.created[rec.TokenHash] = rec
	return nil
}

func (t *memoryTx) PrincipalByID(ctx context.Context, id string) (identity.Principal, error) {
	return t.s.users.PrincipalByID(ctx, id)
}
