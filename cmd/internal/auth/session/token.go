package session

import (
	"time"

	"shopauth/cmd/identity"
)

// AccessClaims is the identity envelope carried by an access token.
// Role is informational; authorization re-reads the principal.
type AccessClaims struct {
	PrincipalID string
	Email       string
	Role        identity.Role
	IssuedAt    time.Time
	ExpiresAt   time.Time
	TokenID     string
	Issuer      string
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(p identity.Principal, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

// NewAccessTokenManager returns the signer selected by cfg.TokenFormat.
func NewAccessTokenManager(cfg Config) (AccessTokenManager, error) {
	switch cfg.TokenFormat {
	case FormatJWT, "":
		return NewJWTManager(cfg)
	case FormatPaseto:
		return NewPasetoV4PublicManager(cfg)
	default:
		return nil, ErrConfig
	}
}

// maxAccessTokenLen rejects absurd inputs before any parsing.
const maxAccessTokenLen = 8192
