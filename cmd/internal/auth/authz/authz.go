// Package authz authenticates requests from the access-token cookie and gates
// them by role.
//
// Token claims only identify the caller. The principal, and so the role, is
// re-read from the directory on every request; a deleted account is
// unauthenticated immediately even while its token is still valid.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"shopauth/cmd/identity"
	"shopauth/cmd/internal/auth/cookies"
	"shopauth/cmd/internal/auth/session"
	"shopauth/cmd/internal/httpjson"
)

var (
	// ErrUnauthenticated means no usable session: no cookie or unknown principal.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// Failure messages.
const (
	MsgUnauthenticated = "Unauthorized. Please log in."
	MsgInvalidToken    = "Invalid authentication token."
	MsgForbidden       = "Forbidden."
	MsgInternal        = "Internal server error."
)

// Verifier checks access tokens. *session.Service satisfies it.
type Verifier interface {
	VerifyAccessToken(tok string, now time.Time) (session.AccessClaims, error)
}

// Gate authenticates and authorizes requests.
type Gate struct {
	tokens Verifier
	users  identity.Directory
	now    func() time.Time
	log    *slog.Logger
}

// NewGate returns a Gate.
func NewGate(tokens Verifier, users identity.Directory, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Gate{
		tokens: tokens,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Authenticate resolves the caller of r. An empty required role admits any
// authenticated principal; ADMIN satisfies every role.
//
// Errors: ErrUnauthenticated, session.ErrInvalidToken, ErrForbidden, or a
// wrapped directory failure.
func (g *Gate) Authenticate(r *http.Request, required identity.Role) (identity.Principal, error) {
	raw := cookies.Value(r, cookies.Access)
	if raw == "" {
		return identity.Principal{}, ErrUnauthenticated
	}

	claims, err := g.tokens.VerifyAccessToken(raw, g.now())
	if err != nil {
		return identity.Principal{}, session.ErrInvalidToken
	}

	p, err := g.users.PrincipalByID(r.Context(), claims.PrincipalID)
	if identity.IsNotFound(err) {
		return identity.Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return identity.Principal{}, fmt.Errorf("authz: resolve principal: %w", err)
	}

	if required != "" && !p.Role.Satisfies(required) {
		return p, ErrForbidden
	}
	return p, nil
}

// Require wraps next so it only runs for principals satisfying role.
// The principal is available to next via PrincipalFromContext.
func (g *Gate) Require(role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.Authenticate(r, role)
			if err != nil {
				g.logFailure(r, p, err)
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func (g *Gate) logFailure(r *http.Request, p identity.Principal, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		g.log.Warn("auth.gate.forbidden", "path", r.URL.Path, "principal_id", p.ID, "role", string(p.Role))
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, session.ErrInvalidToken):
		g.log.Debug("auth.gate.reject", "path", r.URL.Path, "reason", err.Error())
	default:
		g.log.Error("auth.gate.error", "path", r.URL.Path, "err", err)
	}
}

// WriteError maps a gate error to its status and generic message.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		httpjson.Fail(w, http.StatusUnauthorized, MsgUnauthenticated)
	case errors.Is(err, session.ErrInvalidToken):
		httpjson.Fail(w, http.StatusUnauthorized, MsgInvalidToken)
	case errors.Is(err, ErrForbidden):
		httpjson.Fail(w, http.StatusForbidden, MsgForbidden)
	default:
		httpjson.Fail(w, http.StatusInternalServerError, MsgInternal)
	}
}

type principalContextKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by Require.
func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(identity.Principal)
	return p, ok
}
