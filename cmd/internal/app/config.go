package app

import (
	"time"

	"shopauth/cmd/identity"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBSchema       string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool

	// Refresh-token digests must be HMAC-SHA256 keyed by SHOPAUTH_TOKEN_HMAC_KEY.
	RequireTokenHMAC bool

	// SweepInterval is the period of the expired refresh-token sweep.
	SweepInterval time.Duration

	CORSAllowedOrigins []string
	CORSMaxAgeSeconds  int

	// Seeds one ADMIN principal at startup when no account has this email.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// LoadConfig loads Config from environment variables with defaults.
// SHOPAUTH_ENV_FILE (default ".env") is read first when it exists.
func LoadConfig() (Config, error) {
	if err := LoadEnvFile(EnvString("SHOPAUTH_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:  EnvString("SHOPAUTH_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("SHOPAUTH_LOG_LEVEL", "info"),
		LogFormat: EnvString("SHOPAUTH_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("SHOPAUTH_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("SHOPAUTH_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("SHOPAUTH_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("SHOPAUTH_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("SHOPAUTH_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("SHOPAUTH_DATABASE_URL", ""),
		DBSchema:       EnvString("SHOPAUTH_DB_SCHEMA", identity.DefaultSchema),
		DBMaxConns:     EnvInt32("SHOPAUTH_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("SHOPAUTH_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("SHOPAUTH_MIGRATE_ON_START", true),

		ReadinessRequireDB: EnvBool("SHOPAUTH_READINESS_REQUIRE_DB", false),
		RequireTokenHMAC:   EnvBool("SHOPAUTH_REQUIRE_TOKEN_HMAC", false),

		SweepInterval: EnvDuration("SHOPAUTH_SWEEP_INTERVAL", time.Hour),

		CORSAllowedOrigins: EnvList("SHOPAUTH_CORS_ALLOWED_ORIGINS"),
		CORSMaxAgeSeconds:  EnvInt("SHOPAUTH_CORS_MAX_AGE_SECONDS", 600),

		BootstrapAdminEmail:    EnvString("SHOPAUTH_BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: EnvString("SHOPAUTH_BOOTSTRAP_ADMIN_PASSWORD", ""),
	}, nil
}
