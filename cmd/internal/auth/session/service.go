package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shopauth/cmd/identity"
	"shopauth/cmd/identity/ids"
	"shopauth/cmd/security/token"
)

// maxRefreshTokenLen bounds raw refresh input before hashing.
const maxRefreshTokenLen = 512

// Service implements the session operations: login, rotation, logout,
// access-token verification and expiry sweeps.
type Service struct {
	cfg     Config
	tokens  AccessTokenManager
	store   Store
	hasher  token.Hasher
	retry   RetryPolicy
	log     *slog.Logger
	metrics *Metrics
}

// Issued is the result of a login or rotation.
// RefreshToken is the raw secret; it is returned once and never stored.
type Issued struct {
	Principal    identity.Principal
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRetryPolicy overrides cfg.Retry.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Service) { s.retry = p }
}

// WithLogger sets the logger used for sweep and rotation events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the counters the service updates.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService constructs a Service.
func NewService(cfg Config, store Store, tokens AccessTokenManager, hasher token.Hasher, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		tokens:  tokens,
		store:   store,
		hasher:  hasher,
		retry:   cfg.Retry,
		log:     slog.New(slog.DiscardHandler),
		metrics: NewMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Login issues a fresh access token and refresh token for an already
// authenticated principal.
func (s *Service) Login(ctx context.Context, p identity.Principal, now time.Time) (Issued, error) {
	if p.ID == "" {
		return Issued{}, fmt.Errorf("session.Login: empty principal id")
	}

	access, accessExp, err := s.tokens.Issue(p, now)
	if err != nil {
		return Issued{}, err
	}

	raw, rec, err := s.mintRefresh(p.ID, now)
	if err != nil {
		return Issued{}, err
	}

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, rec)
	})
	if err != nil {
		return Issued{}, err
	}

	s.metrics.logins.Inc()
	return Issued{
		Principal:    p,
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: raw,
		RefreshExp:   rec.ExpiresAt,
	}, nil
}

// Rotate exchanges a raw refresh token for a new access token and a new
// refresh token. The presented token is consumed; it can never succeed twice.
//
// Every rejection (unknown, expired, consumed, owner deleted) is
// ErrInvalidRefreshToken. If the call runs past Config.RotateTimeout the
// error matches both ErrInvalidRefreshToken and context.DeadlineExceeded.
// Exhausted transient failures surface as ErrTransientStore.
func (s *Service) Rotate(ctx context.Context, raw string, now time.Time) (Issued, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRefreshTokenLen {
		s.metrics.rotations.WithLabelValues(rotateInvalid).Inc()
		return Issued{}, ErrInvalidRefreshToken
	}
	digest := s.hasher.Hash(raw)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RotateTimeout)
	defer cancel()

	var out Issued
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		issued, err := s.rotateOnce(ctx, digest, now)
		if err != nil {
			return err
		}
		out = issued
		return nil
	})

	switch {
	case err == nil:
		s.metrics.rotations.WithLabelValues(rotateOK).Inc()
		return out, nil
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrInvalidRefreshToken):
		s.metrics.rotations.WithLabelValues(rotateInvalid).Inc()
		return Issued{}, ErrInvalidRefreshToken
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.metrics.rotations.WithLabelValues(rotateTimeout).Inc()
		s.log.Warn("session.rotate.timeout", "timeout", s.cfg.RotateTimeout.String())
		return Issued{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, context.DeadlineExceeded)
	case errors.Is(err, ErrTransientStore):
		s.metrics.rotations.WithLabelValues(rotateTransient).Inc()
		s.log.Error("session.rotate.transient", "err", err)
		return Issued{}, err
	default:
		s.metrics.rotations.WithLabelValues(rotateError).Inc()
		return Issued{}, fmt.Errorf("session.Rotate: %w", err)
	}
}

func (s *Service) rotateOnce(ctx context.Context, digest string, now time.Time) (Issued, error) {
	var out Issued
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		old, err := tx.Consume(ctx, digest, now)
		if err != nil {
			return err
		}

		p, err := tx.PrincipalByID(ctx, old.PrincipalID)
		if identity.IsNotFound(err) {
			return ErrInvalidRefreshToken
		}
		if err != nil {
			return err
		}

		raw, rec, err := s.mintRefresh(p.ID, now)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, rec); err != nil {
			return err
		}

		access, accessExp, err := s.tokens.Issue(p, now)
		if err != nil {
			return err
		}

		out = Issued{
			Principal:    p,
			AccessToken:  access,
			AccessExp:    accessExp,
			RefreshToken: raw,
			RefreshExp:   rec.ExpiresAt,
		}
		return nil
	})
	return out, err
}

// Logout deletes the record behind raw. Unknown or empty tokens are not an error.
func (s *Service) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRefreshTokenLen {
		return nil
	}
	if err := s.store.Delete(ctx, s.hasher.Hash(raw)); err != nil {
		return err
	}
	s.metrics.logouts.Inc()
	return nil
}

// VerifyAccessToken checks signature, issuer and expiry.
// Any failure is ErrInvalidToken.
func (s *Service) VerifyAccessToken(tok string, now time.Time) (AccessClaims, error) {
	return s.tokens.Verify(tok, now)
}

// CleanupExpired removes refresh records that expired at or before now.
// Running it again immediately returns 0.
func (s *Service) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.SweepExpired(ctx, now)
	if err != nil {
		s.metrics.sweepFailures.Inc()
		s.log.Error("session.sweep.fail", "err", err)
		return 0, err
	}
	s.metrics.sweepRemoved.Add(float64(n))
	s.log.Info("session.sweep.done", "removed", n)
	return n, nil
}

// RefreshTTL is the lifetime of newly issued refresh tokens.
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// AccessTTL is the lifetime of newly issued access tokens.
func (s *Service) AccessTTL() time.Duration { return s.cfg.AccessTokenTTL }

func (s *Service) mintRefresh(principalID string, now time.Time) (string, Record, error) {
	raw, err := token.NewOpaque(s.cfg.RefreshTokenBytes)
	if err != nil {
		return "", Record{}, err
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return "", Record{}, err
	}
	return raw, Record{
		ID:          id,
		PrincipalID: principalID,
		TokenHash:   s.hasher.Hash(raw),
		ExpiresAt:   now.Add(s.cfg.RefreshTTL),
		CreatedAt:   now,
	}, nil
}
