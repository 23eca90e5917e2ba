package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"shopauth/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Directory and Provisioner over PostgreSQL.
//
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultSchema is the schema the migrations create tables in.
const DefaultSchema = "shopauth"

// WithSchema sets the Postgres schema used by the store (default "shopauth").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !ValidSchemaName(schema) {
			return fmt.Errorf("identity: invalid schema identifier %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LookupPrincipal reads one principal through q. Session rotation calls it
// with its own transaction so the lookup shares that snapshot.
func LookupPrincipal(ctx context.Context, q Querier, schema, id string) (Principal, error) {
	const op = "identity.PrincipalByID"

	id = strings.TrimSpace(id)
	if id == "" {
		return Principal{}, notFound(op)
	}

	var (
		p    Principal
		role string
	)
	err := q.QueryRow(ctx,
		`SELECT id, name, email, role, avatar_url
		   FROM `+pgIdent(schema, "users")+`
		  WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Email, &role, &p.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, notFound(op)
	}
	if err != nil {
		return Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	r, ok := ParseRole(role)
	if !ok {
		return Principal{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "stored role is unknown"}
	}
	p.Role = r
	return p, nil
}

// Schema returns the schema the store reads from.
func (s *PostgresStore) Schema() string { return s.schema }

// PrincipalByID implements Directory.
func (s *PostgresStore) PrincipalByID(ctx context.Context, id string) (Principal, error) {
	return LookupPrincipal(ctx, s.pool, s.schema, id)
}

// CredentialsByEmail implements Directory.
func (s *PostgresStore) CredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	const op = "identity.CredentialsByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return Credentials{}, notFound(op)
	}

	var (
		c    Credentials
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, role, avatar_url, password_hash
		   FROM `+pgIdent(s.schema, "users")+`
		  WHERE email_norm = $1`,
		norm,
	).Scan(&c.Principal.ID, &c.Principal.Name, &c.Principal.Email, &role, &c.Principal.AvatarURL, &c.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credentials{}, notFound(op)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	r, ok := ParseRole(role)
	if !ok {
		return Credentials{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "stored role is unknown"}
	}
	c.Principal.Role = r
	return c, nil
}

// CreatePrincipal implements Provisioner.
func (s *PostgresStore) CreatePrincipal(ctx context.Context, in NewPrincipal) (Principal, error) {
	const op = "identity.CreatePrincipal"

	in, err := validateNew(op, in)
	if err != nil {
		return Principal{}, err
	}

	id, err := ids.NewULID(in.Now)
	if err != nil {
		return Principal{}, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, "users")+` (
		     id, name, email, email_norm, role, avatar_url, password_hash, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, in.Name, in.Email, NormalizeEmail(in.Email), string(in.Role), in.AvatarURL, in.PasswordHash, in.Now.UTC(),
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Principal{}, ConflictError{Op: op, Field: field}
		}
		return Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	return Principal{
		ID:        id,
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		AvatarURL: in.AvatarURL,
	}, nil
}

// ---- helpers ----

// ValidSchemaName reports whether s is a safe unquoted Postgres identifier.
func ValidSchemaName(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case strings.Contains(c, "email"):
		return "email", true
	case strings.Contains(c, "pkey"):
		return "id", true
	default:
		return "unique", true
	}
}
