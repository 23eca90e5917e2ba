// Package migrations applies the embedded shopauth schema with goose.
//
// Tables are created unqualified; Apply pins search_path to the target schema
// so the same files serve production and per-test schemas.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var files embed.FS

var schemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Result summarises an Apply run.
type Result struct {
	Applied []int64
}

// Apply creates schema if needed and runs all pending migrations in it.
func Apply(ctx context.Context, databaseURL, schema string) (Result, error) {
	if !schemaRe.MatchString(schema) {
		return Result{}, fmt.Errorf("migrations: invalid schema %q", schema)
	}

	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: parse database url: %w", err)
	}
	cfg.RuntimeParams["search_path"] = schema

	db := stdlib.OpenDB(*cfg)
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return Result{}, fmt.Errorf("migrations: create schema: %w", err)
	}

	return up(ctx, db)
}

func up(ctx context.Context, db *sql.DB) (Result, error) {
	fsys, err := fs.Sub(files, "sql")
	if err != nil {
		return Result{}, err
	}

	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("migrations: up: %w", err)
	}

	var out Result
	for _, r := range results {
		out.Applied = append(out.Applied, r.Source.Version)
	}
	return out, nil
}

// Versions lists the embedded migration versions in order.
func Versions() ([]int64, error) {
	names, err := fs.Glob(files, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(names))
	for _, n := range names {
		v, err := goose.NumericComponent(n)
		if err != nil {
			return nil, fmt.Errorf("migrations: %s: %w", n, err)
		}
		out = append(out, v)
	}
	return out, nil
}
