package session

import (
	"time"

	"shopauth/cmd/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type jwtHS256Manager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	secret    []byte
}

// NewJWTManager builds an HS256 AccessTokenManager. The secret is copied once
// and never mutated.
func NewJWTManager(cfg Config) (AccessTokenManager, error) {
	if len(cfg.JWTSecret) < minJWTSecretBytes || cfg.AccessTokenTTL <= 0 {
		return nil, ErrConfig
	}
	return &jwtHS256Manager{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
		secret:    []byte(cfg.JWTSecret),
	}, nil
}

func (m *jwtHS256Manager) Issue(p identity.Principal, now time.Time) (string, time.Time, error) {
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(m.ttl))

	claims := jwtClaims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   p.ID,
			IssuedAt:  iat,
			NotBefore: iat,
			ExpiresAt: exp,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Time, nil
}

func (m *jwtHS256Manager) Verify(token string, now time.Time) (AccessClaims, error) {
	if token == "" || len(token) > maxAccessTokenLen {
		return AccessClaims{}, ErrInvalidToken
	}

	// A fresh parser per call binds the caller's clock.
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var c jwtClaims
	if _, err := p.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return m.secret, nil }); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	if c.UserID == "" || c.UserID != c.Subject {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{
		PrincipalID: c.UserID,
		Email:       c.Email,
		Role:        identity.Role(c.Role),
		TokenID:     c.ID,
		Issuer:      c.Issuer,
		ExpiresAt:   c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out, nil
}
