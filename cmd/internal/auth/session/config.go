package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// TokenFormat selects the access-token signer.
type TokenFormat string

const (
	FormatJWT    TokenFormat = "jwt"
	FormatPaseto TokenFormat = "paseto"
)

const (
	minRefreshTokenBytes = 40
	maxRefreshTokenBytes = 64
	minJWTSecretBytes    = 32
)

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration

	// ClockSkew is the tolerance applied when checking iat/exp.
	ClockSkew time.Duration

	// RefreshTokenBytes is the entropy of each opaque refresh token.
	RefreshTokenBytes int

	// RotateTimeout bounds a whole Rotate call, retries included.
	RotateTimeout time.Duration

	TokenFormat TokenFormat

	// JWTSecret is the HS256 key (FormatJWT).
	JWTSecret string

	// PasetoV4SecretKeyHex is the hex Ed25519 secret key (FormatPaseto).
	PasetoV4SecretKeyHex string

	Retry RetryPolicy
}

// DefaultConfig returns the production defaults minus signing keys.
func DefaultConfig() Config {
	return Config{
		Issuer:            "shopauth",
		AccessTokenTTL:    24 * time.Hour,
		RefreshTTL:        30 * 24 * time.Hour,
		ClockSkew:         0,
		RefreshTokenBytes: 48,
		RotateTimeout:     5 * time.Second,
		TokenFormat:       FormatJWT,
		Retry:             DefaultRetryPolicy(),
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required (depending on SHOPAUTH_ACCESS_TOKEN_FORMAT):
//   - SHOPAUTH_JWT_SECRET (jwt, >= 32 bytes)
//   - SHOPAUTH_PASETO_V4_SECRET_KEY_HEX (paseto)
//
// Optional (durations must be valid Go duration strings):
//   - SHOPAUTH_AUTH_ISSUER
//   - SHOPAUTH_AUTH_ACCESS_TTL
//   - SHOPAUTH_AUTH_REFRESH_TTL
//   - SHOPAUTH_AUTH_CLOCK_SKEW
//   - SHOPAUTH_AUTH_REFRESH_TOKEN_BYTES
//   - SHOPAUTH_AUTH_ROTATE_TIMEOUT
//   - SHOPAUTH_AUTH_RETRY_MAX_ATTEMPTS
//   - SHOPAUTH_AUTH_RETRY_BASE_DELAY
//   - SHOPAUTH_AUTH_RETRY_MAX_DELAY
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("SHOPAUTH_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	durations := []struct {
		key       string
		dst       *time.Duration
		allowZero bool
	}{
		{"SHOPAUTH_AUTH_ACCESS_TTL", &cfg.AccessTokenTTL, false},
		{"SHOPAUTH_AUTH_REFRESH_TTL", &cfg.RefreshTTL, false},
		{"SHOPAUTH_AUTH_CLOCK_SKEW", &cfg.ClockSkew, true},
		{"SHOPAUTH_AUTH_ROTATE_TIMEOUT", &cfg.RotateTimeout, false},
		{"SHOPAUTH_AUTH_RETRY_BASE_DELAY", &cfg.Retry.BaseDelay, false},
		{"SHOPAUTH_AUTH_RETRY_MAX_DELAY", &cfg.Retry.MaxDelay, true},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || (parsed == 0 && !d.allowZero) {
			return Config{}, ErrConfig
		}
		*d.dst = parsed
	}

	if v := os.Getenv("SHOPAUTH_AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minRefreshTokenBytes || n > maxRefreshTokenBytes {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	if v := os.Getenv("SHOPAUTH_AUTH_RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10 {
			return Config{}, ErrConfig
		}
		cfg.Retry.MaxAttempts = n
	}

	if v := strings.TrimSpace(os.Getenv("SHOPAUTH_ACCESS_TOKEN_FORMAT")); v != "" {
		cfg.TokenFormat = TokenFormat(strings.ToLower(v))
	}
	cfg.JWTSecret = os.Getenv("SHOPAUTH_JWT_SECRET")
	cfg.PasetoV4SecretKeyHex = os.Getenv("SHOPAUTH_PASETO_V4_SECRET_KEY_HEX")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants.
func (c Config) Validate() error {
	switch c.TokenFormat {
	case FormatJWT:
		if len(c.JWTSecret) < minJWTSecretBytes {
			return ErrConfig
		}
	case FormatPaseto:
		if c.PasetoV4SecretKeyHex == "" {
			return ErrConfig
		}
	default:
		return ErrConfig
	}
	if c.RefreshTokenBytes < minRefreshTokenBytes || c.RefreshTokenBytes > maxRefreshTokenBytes {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTTL <= 0 || c.RotateTimeout <= 0 {
		return ErrConfig
	}
	if c.RefreshTTL < c.AccessTokenTTL {
		return ErrConfig
	}
	if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
		return ErrConfig
	}
	return nil
}
