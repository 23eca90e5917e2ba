// Package csrf implements the double-submit CSRF guard.
//
// A random token is set in the readable csrf-token cookie; page scripts echo
// it in the x-csrf-token header on every state-changing request. The token
// is minted on demand and at login and is not rotated afterwards.
package csrf

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"shopauth/cmd/internal/auth/cookies"
	"shopauth/cmd/internal/httpjson"
	"shopauth/cmd/security/token"
)

// HeaderName is the request header carrying the echoed token.
const HeaderName = "x-csrf-token"

const tokenBytes = 32

// ErrMismatch is returned when the header and cookie do not match.
var ErrMismatch = errors.New("csrf token mismatch")

// Message is the failure body sent on rejection.
const Message = "Invalid CSRF token."

// Guard validates double-submit tokens.
type Guard struct {
	cookies cookies.Policy
	log     *slog.Logger
}

// NewGuard returns a Guard writing cookies with p.
func NewGuard(p cookies.Policy, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Guard{cookies: p, log: log}
}

// Generate returns a fresh random token.
func (g *Guard) Generate() (string, error) {
	return token.NewOpaque(tokenBytes)
}

// Issue mints a token and sets it as the csrf-token cookie.
func (g *Guard) Issue(w http.ResponseWriter) (string, error) {
	tok, err := g.Generate()
	if err != nil {
		return "", err
	}
	g.cookies.SetCSRF(w, tok)
	return tok, nil
}

// Validate reports whether both values are non-empty and equal.
// The comparison is constant-time.
func Validate(cookieValue, headerValue string) bool {
	if cookieValue == "" || headerValue == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieValue), []byte(headerValue)) == 1
}

// ShouldCheck reports whether method can change state.
func ShouldCheck(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// Check applies the guard to r.
func (g *Guard) Check(r *http.Request) error {
	if !ShouldCheck(r.Method) {
		return nil
	}
	if !Validate(cookies.Value(r, cookies.CSRF), r.Header.Get(HeaderName)) {
		return ErrMismatch
	}
	return nil
}

// Middleware rejects mismatched requests with 403 before next runs.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.Check(r); err != nil {
			g.log.Warn("auth.csrf.reject", "method", r.Method, "path", r.URL.Path)
			httpjson.Fail(w, http.StatusForbidden, Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}
