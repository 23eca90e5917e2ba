package session

import (
	"errors"
	"time"

	"shopauth/cmd/identity"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

type pasetoV4PublicManager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

// NewPasetoV4PublicManager builds an AccessTokenManager based on PASETO v4.public
// (Ed25519). Issuer and expiry are enforced against the caller's clock.
func NewPasetoV4PublicManager(cfg Config) (AccessTokenManager, error) {
	secret, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.PasetoV4SecretKeyHex)
	if err != nil || cfg.AccessTokenTTL <= 0 {
		return nil, ErrConfig
	}

	return &pasetoV4PublicManager{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
		secret:    secret,
		public:    secret.Public(),
	}, nil
}

func (m *pasetoV4PublicManager) Issue(p identity.Principal, now time.Time) (string, time.Time, error) {
	now = now.Truncate(time.Second)
	exp := now.Add(m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetSubject(p.ID)
	tok.SetJti(uuid.NewString())
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	tok.SetString("id", p.ID)
	tok.SetString("email", p.Email)
	tok.SetString("role", string(p.Role))

	return tok.V4Sign(m.secret, nil), exp, nil
}

func (m *pasetoV4PublicManager) Verify(token string, now time.Time) (AccessClaims, error) {
	if token == "" || len(token) > maxAccessTokenLen {
		return AccessClaims{}, ErrInvalidToken
	}

	// Build a fresh parser per call to avoid accumulating rules across verifies.
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(validAt(now, m.clockSkew))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	uid, err := parsed.GetString("id")
	if err != nil || uid == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	if sub, _ := parsed.GetSubject(); sub != uid {
		return AccessClaims{}, ErrInvalidToken
	}

	email, _ := parsed.GetString("email")
	role, _ := parsed.GetString("role")
	jti, _ := parsed.GetJti()
	iss, _ := parsed.GetIssuer()
	exp, _ := parsed.GetExpiration()
	iat, _ := parsed.GetIssuedAt()

	return AccessClaims{
		PrincipalID: uid,
		Email:       email,
		Role:        identity.Role(role),
		IssuedAt:    iat,
		ExpiresAt:   exp,
		TokenID:     jti,
		Issuer:      iss,
	}, nil
}

var (
	errPasetoExpired = errors.New("token expired")
	errPasetoEarly   = errors.New("token not yet valid")
)

// validAt requires now-skew < exp and iat <= now+skew.
func validAt(now time.Time, skew time.Duration) paseto.Rule {
	return func(t paseto.Token) error {
		exp, err := t.GetExpiration()
		if err != nil {
			return err
		}
		if !now.Add(-skew).Before(exp) {
			return errPasetoExpired
		}
		iat, err := t.GetIssuedAt()
		if err != nil {
			return err
		}
		if now.Add(skew).Before(iat) {
			return errPasetoEarly
		}
		return nil
	}
}
