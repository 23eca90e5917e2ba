package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "SHOPAUTH_HTTP_ADDR=127.0.0.1:9999\nSHOPAUTH_SWEEP_INTERVAL=15m\nSHOPAUTH_CORS_ALLOWED_ORIGINS=https://a.example.com, ,https://b.example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("SHOPAUTH_ENV_FILE", path)
	// t.Setenv registers cleanup; clear so godotenv may fill them.
	for _, k := range []string{"SHOPAUTH_HTTP_ADDR", "SHOPAUTH_SWEEP_INTERVAL", "SHOPAUTH_CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("addr: %q", cfg.HTTPAddr)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Fatalf("sweep interval: %v", cfg.SweepInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_ProcessEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SHOPAUTH_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SHOPAUTH_ENV_FILE", path)
	t.Setenv("SHOPAUTH_LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("log level: %q", cfg.LogLevel)
	}
}

func TestLoadConfig_MissingEnvFileIgnored(t *testing.T) {
	t.Setenv("SHOPAUTH_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBSchema != "shopauth" || cfg.SweepInterval != time.Hour || !cfg.MigrateOnStart {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestNewTokenHasher_Policy(t *testing.T) {
	t.Setenv("SHOPAUTH_TOKEN_HMAC_KEY", "")
	if _, err := NewTokenHasher(Config{RequireTokenHMAC: true}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	h, err := NewTokenHasher(Config{})
	if err != nil || h.Keyed() {
		t.Fatalf("optional policy without key: keyed=%v err=%v", h.Keyed(), err)
	}

	t.Setenv("SHOPAUTH_TOKEN_HMAC_KEY", "short")
	if _, err := NewTokenHasher(Config{RequireTokenHMAC: true}); err == nil {
		t.Fatalf("expected error for short key")
	}

	t.Setenv("SHOPAUTH_TOKEN_HMAC_KEY", "0123456789abcdef0123456789abcdef")
	h, err = NewTokenHasher(Config{RequireTokenHMAC: true})
	if err != nil || !h.Keyed() {
		t.Fatalf("keyed=%v err=%v", h.Keyed(), err)
	}
}
