package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"shopauth/cmd/internal/auth/cookies"
)

// Config controls auth API behaviour and cookie attributes.
type Config struct {
	MaxBodyBytes int64
	Cookies      cookies.Policy
}

// LoadConfigFromEnv loads API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes: envInt64("SHOPAUTH_AUTH_MAX_BODY_BYTES", 64<<10),
		Cookies:      cookies.DefaultPolicy(),
	}

	cfg.Cookies.Secure = envBool("SHOPAUTH_COOKIE_SECURE", true)
	cfg.Cookies.Domain = strings.TrimSpace(os.Getenv("SHOPAUTH_COOKIE_DOMAIN"))
	if ss, ok := cookies.ParseSameSite(os.Getenv("SHOPAUTH_COOKIE_SAMESITE")); ok {
		cfg.Cookies.SameSite = ss
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if cfg.Cookies.SameSite == http.SameSiteNoneMode {
		cfg.Cookies.Secure = true
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
