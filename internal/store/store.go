package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	ErrNotFound = errors.New("not_found")
	// ErrNotConfigured is returned by every repository method when the
	// server runs without a Postgres DSN.
	ErrNotConfigured = errors.New("store_not_configured")
)

// Store wraps DB access. A nil *Store is a valid degraded store whose
// methods all return ErrNotConfigured.
type Store struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Enabled() bool {
	return s != nil && s.Pool != nil
}

func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

// Migrate applies the embedded schema. Every statement is idempotent so
// it runs unconditionally at boot.
func (s *Store) Migrate(ctx context.Context) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	ddl, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, string(ddl))
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
