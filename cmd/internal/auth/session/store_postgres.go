package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopauth/cmd/identity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over "<schema>".refresh_tokens.
// The pgx pool is owned by the caller.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresStore creates a Postgres-backed refresh store. An empty schema
// selects identity.DefaultSchema.
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	if schema == "" {
		schema = identity.DefaultSchema
	}
	if !identity.ValidSchemaName(schema) {
		return nil, fmt.Errorf("session: invalid schema identifier %q", schema)
	}
	return &PostgresStore{pool: pool, schema: schema}, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "refresh_tokens"}.Sanitize()
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	return createRecord(ctx, s.pool, s.table(), rec)
}

// Consume implements Store.
func (s *PostgresStore) Consume(ctx context.Context, tokenHash string, now time.Time) (Record, error) {
	var out Record
	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		rec, err := tx.Consume(ctx, tokenHash, now)
		out = rec
		return err
	})
	return out, err
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE token_hash = $1`, tokenHash)
	return classifyPG("session.Delete", err)
}

// SweepExpired implements Store.
func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, classifyPG("session.SweepExpired", err)
	}
	return tag.RowsAffected(), nil
}

// WithTx implements Store.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return classifyPG("session.begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx, schema: s.schema, table: s.table()}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyPG("session.commit", err)
	}
	return nil
}

type pgTx struct {
	tx     pgx.Tx
	schema string
	table  string
}

// Consume deletes and returns the live row in a single statement. DELETE takes
// the row lock, so a concurrent consumer blocks and then sees zero rows.
func (t *pgTx) Consume(ctx context.Context, tokenHash string, now time.Time) (Record, error) {
	var rec Record
	err := t.tx.QueryRow(ctx, `
		DELETE FROM `+t.table+`
		WHERE token_hash = $1 AND expires_at > $2
		RETURNING id, user_id, token_hash, expires_at, created_at
	`, tokenHash, now.UTC()).Scan(
		&rec.ID,
		&rec.PrincipalID,
		&rec.TokenHash,
		&rec.ExpiresAt,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, classifyPG("session.Consume", err)
	}
	return rec, nil
}

func (t *pgTx) Create(ctx context.Context, rec Record) error {
	return createRecord(ctx, t.tx, t.table, rec)
}

func (t *pgTx) PrincipalByID(ctx context.Context, id string) (identity.Principal, error) {
	p, err := identity.LookupPrincipal(ctx, t.tx, t.schema, id)
	if err != nil && !identity.IsNotFound(err) {
		return identity.Principal{}, classifyPG("session.PrincipalByID", err)
	}
	return p, err
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func createRecord(ctx context.Context, db execer, table string, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	_, err := db.Exec(ctx, `
		INSERT INTO `+table+` (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.PrincipalID, rec.TokenHash, rec.ExpiresAt.UTC(), rec.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRecord
		}
		return classifyPG("session.Create", err)
	}
	return nil
}

// classifyPG marks retryable failures with ErrTransientStore and annotates the rest.
func classifyPG(op string, err error) error {
	if err == nil {
		return nil
	}
	if pgTransient(err) {
		return TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pgTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01",                   // deadlock_detected
			"55P03",                   // lock_not_available
			"57P01",                   // admin_shutdown
			"53300",                   // too_many_connections
			"08000", "08003", "08006": // connection exceptions
			return true
		}
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
