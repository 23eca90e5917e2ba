// Package pgtest opens throwaway Postgres schemas for integration tests.
//
// Tests are opt-in: without SHOPAUTH_DATABASE_URL they skip. Outside CI an
// unreachable server also skips so local runs stay fast.
package pgtest

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"shopauth/cmd/identity/ids"
	"shopauth/cmd/internal/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnvDatabaseURL names the variable holding the test server DSN.
const EnvDatabaseURL = "SHOPAUTH_DATABASE_URL"

// DB is a migrated, isolated schema plus a pool to reach it.
type DB struct {
	Pool   *pgxpool.Pool
	Schema string
}

// Open returns a pool bound to a freshly migrated schema. The schema is
// dropped and the pool closed on test cleanup.
func Open(t *testing.T) DB {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if raw == "" {
		t.Skipf("integration test skipped: %s is not set", EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", EnvDatabaseURL, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkip(err) {
			t.Skipf("integration test skipped: Postgres unreachable: %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		pool.Close()
		t.Fatalf("ulid: %v", err)
	}
	schema := "shopauth_it_" + strings.ToLower(id)

	if _, err := migrations.Apply(ctx, raw, schema); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = pool.Exec(dropCtx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
		pool.Close()
	})

	return DB{Pool: pool, Schema: schema}
}

// Exec runs sql against the pool and fails the test on error.
func (d DB) Exec(t *testing.T, sql string, args ...any) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := d.Pool.Exec(ctx, sql, args...); err != nil {
		t.Fatalf("exec failed: %v", err)
	}
}

// Table returns the quoted, schema-qualified name of table.
func (d DB) Table(table string) string {
	return pgx.Identifier{d.Schema, table}.Sanitize()
}

func shouldSkip(err error) bool {
	if err == nil || os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host")
}
