package identity

import (
	"context"
	"strings"
	"time"
)

// Role is the authorization tier of a principal.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Satisfies reports whether a principal holding r passes a gate requiring
// required. Admins pass every gate.
func (r Role) Satisfies(required Role) bool {
	return r == required || r == RoleAdmin
}

// ParseRole maps a stored or configured value to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Principal is the authenticated subject as seen by handlers.
type Principal struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Email     string  `json:"email"`
	Role      Role    `json:"role"`
	AvatarURL *string `json:"avatarUrl"`
}

// Credentials pairs a principal with its stored password hash.
// It never leaves the login path.
type Credentials struct {
	Principal    Principal
	PasswordHash string
}

// NewPrincipal provisions an account.
type NewPrincipal struct {
	Name         *string
	Email        string
	Role         Role
	AvatarURL    *string
	PasswordHash string
	Now          time.Time
}

// Directory resolves principals. Lookups by email are case-insensitive.
type Directory interface {
	PrincipalByID(ctx context.Context, id string) (Principal, error)
	CredentialsByEmail(ctx context.Context, email string) (Credentials, error)
}

// Provisioner creates principals. Used by bootstrap seeding, not by any public route.
type Provisioner interface {
	CreatePrincipal(ctx context.Context, in NewPrincipal) (Principal, error)
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateNew(op string, in NewPrincipal) (NewPrincipal, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return in, invalid(op, "email is required")
	}
	if in.Role == "" {
		in.Role = RoleUser
	}
	if !in.Role.Valid() {
		return in, invalid(op, "unknown role")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return in, invalid(op, "password hash is required")
	}
	in.Name = trimPtr(in.Name)
	in.AvatarURL = trimPtr(in.AvatarURL)
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}

// trimPtr trims a string pointer, returning nil if result is empty.
func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
