package session

import (
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigFromEnv_MissingJWTSecret(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", "")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortJWTSecret(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", "too-short")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on short secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_PasetoNeedsKey(t *testing.T) {
	t.Setenv("SHOPAUTH_ACCESS_TOKEN_FORMAT", "paseto")
	t.Setenv("SHOPAUTH_PASETO_V4_SECRET_KEY_HEX", "")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing paseto key, got %v", err)
	}

	t.Setenv("SHOPAUTH_PASETO_V4_SECRET_KEY_HEX", paseto.NewV4AsymmetricSecretKey().ExportHex())
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TokenFormat != FormatPaseto {
		t.Fatalf("format=%q", cfg.TokenFormat)
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", testJWTSecret)
	t.Setenv("SHOPAUTH_AUTH_ACCESS_TTL", "-5m")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative duration, got %v", err)
	}
}

func TestLoadConfigFromEnv_RefreshEntropyFloor(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", testJWTSecret)
	t.Setenv("SHOPAUTH_AUTH_REFRESH_TOKEN_BYTES", "32")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig below 40 bytes, got %v", err)
	}
}

func TestLoadConfigFromEnv_UnknownFormat(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", testJWTSecret)
	t.Setenv("SHOPAUTH_ACCESS_TOKEN_FORMAT", "saml")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for unknown format, got %v", err)
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", testJWTSecret)

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessTokenTTL != 24*time.Hour {
		t.Fatalf("access ttl: %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTTL != 30*24*time.Hour {
		t.Fatalf("refresh ttl: %v", cfg.RefreshTTL)
	}
	if cfg.RefreshTokenBytes < 40 {
		t.Fatalf("refresh entropy: %d", cfg.RefreshTokenBytes)
	}
	if cfg.TokenFormat != FormatJWT {
		t.Fatalf("format: %q", cfg.TokenFormat)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("retry attempts: %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", testJWTSecret)
	t.Setenv("SHOPAUTH_AUTH_ISSUER", "shop-test")
	t.Setenv("SHOPAUTH_AUTH_ACCESS_TTL", "10m")
	t.Setenv("SHOPAUTH_AUTH_REFRESH_TTL", "48h")
	t.Setenv("SHOPAUTH_AUTH_CLOCK_SKEW", "20s")
	t.Setenv("SHOPAUTH_AUTH_REFRESH_TOKEN_BYTES", "64")
	t.Setenv("SHOPAUTH_AUTH_ROTATE_TIMEOUT", "2s")
	t.Setenv("SHOPAUTH_AUTH_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("SHOPAUTH_AUTH_RETRY_BASE_DELAY", "10ms")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Issuer != "shop-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 10*time.Minute || cfg.RefreshTTL != 48*time.Hour {
		t.Fatalf("ttl mismatch: %v %v", cfg.AccessTokenTTL, cfg.RefreshTTL)
	}
	if cfg.ClockSkew != 20*time.Second {
		t.Fatalf("clock skew mismatch: %v", cfg.ClockSkew)
	}
	if cfg.RefreshTokenBytes != 64 {
		t.Fatalf("refresh token bytes mismatch: %d", cfg.RefreshTokenBytes)
	}
	if cfg.RotateTimeout != 2*time.Second {
		t.Fatalf("rotate timeout mismatch: %v", cfg.RotateTimeout)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelay != 10*time.Millisecond {
		t.Fatalf("retry mismatch: %+v", cfg.Retry)
	}
}
