// Package store is the repository layer: resolving handles to internal
// row ids, bulk-upserting statements, reconstructing rows into typed
// values, and the Volume/File/Blob CRUD that backs the filesystem-index
// layer. Connection lifecycle and transaction wrapping follow the same
// open/ping/close-on-failure shape as the rest of the tree's Postgres
// access, built on pgx rather than database/sql.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every
// Repository method can run either directly against the pool or inside
// an explicit transaction without duplicating code.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store owns the connection pool for the process. One Store is created
// at startup and shared across requests; per-request state lives only
// in the transaction and the registry, never here.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and verifies connectivity with a ping:
// open, then ping, closing on failure rather than leaking a half-open
// pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases every connection in the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for read-only operations (e.g. a
// health check) that don't need transactional semantics.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Begin starts a transaction for one request. Every database round trip
// for that request must go through the returned pgx.Tx so that reads
// observe the request's own writes and so a single Commit or Rollback
// bounds the whole request.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPgError(fmt.Errorf("store: failed to begin transaction: %w", err))
	}
	return tx, nil
}

// Repository is the per-call facade over a DBTX: every exported method
// runs a fixed, self-contained set of round trips, and nothing here
// holds state across calls (that's the Registry's job).
type Repository struct {
	db DBTX
}

// NewRepository builds a Repository bound to db, which may be the
// Store's pool directly (for a transaction-less read) or a pgx.Tx
// returned by Store.Begin (for anything that writes).
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// Query runs compiler-generated SQL directly against the bound DBTX.
// It exists for internal/query/exec, which builds its own SQL text
// from a compiled plan rather than going through a named Repository
// method.
func (r *Repository) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classifyPgError(fmt.Errorf("store: query: %w", err))
	}
	return rows, nil
}
