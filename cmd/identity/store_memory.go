package identity

import (
	"context"
	"sync"

	"shopauth/cmd/identity/ids"
)

// MemoryStore is an in-process Directory for dev mode and tests.
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Credentials
	byEmail map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Credentials),
		byEmail: make(map[string]string),
	}
}

// PrincipalByID implements Directory.
func (s *MemoryStore) PrincipalByID(ctx context.Context, id string) (Principal, error) {
	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return Principal{}, notFound("identity.PrincipalByID")
	}
	return c.Principal, nil
}

// CredentialsByEmail implements Directory.
func (s *MemoryStore) CredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return Credentials{}, notFound("identity.CredentialsByEmail")
	}
	return s.byID[id], nil
}

// CreatePrincipal implements Provisioner.
func (s *MemoryStore) CreatePrincipal(ctx context.Context, in NewPrincipal) (Principal, error) {
	const op = "identity.CreatePrincipal"

	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}
	in, err := validateNew(op, in)
	if err != nil {
		return Principal{}, err
	}
	id, err := ids.NewULID(in.Now)
	if err != nil {
		return Principal{}, err
	}

	p := Principal{ID: id, Name: in.Name, Email: in.Email, Role: in.Role, AvatarURL: in.AvatarURL}
	norm := NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byEmail[norm]; dup {
		return Principal{}, ConflictError{Op: op, Field: "email"}
	}
	s.byID[id] = Credentials{Principal: p, PasswordHash: in.PasswordHash}
	s.byEmail[norm] = id
	return p, nil
}

// Delete removes a principal. Tests use it to simulate account removal
// between login and refresh.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.byID[id]; ok {
		delete(s.byEmail, NormalizeEmail(c.Principal.Email))
		delete(s.byID, id)
	}
}

// SetRole changes a principal's role in place.
func (s *MemoryStore) SetRole(id string, r Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.byID[id]; ok {
		c.Principal.Role = r
		s.byID[id] = c
	}
}
