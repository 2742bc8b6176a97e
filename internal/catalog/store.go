package catalog

import (
	"context"
	"errors"
	"fmt"

	"catalogd/internal/catalogerr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the catalog's sole entry point: a pooled pgx connection plus the
// selectors and writers of SPEC_FULL.md §4.1. Grounded on the teacher's
// internal/db/db.go DB wrapper.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so selectors can
// run either against the pool directly or inside a writer's transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, log: log.Named("catalog")}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Tx is an in-flight transaction, passed to writers that must touch more
// than one table atomically.
type Tx struct {
	pgx.Tx
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any returned error. Mirrors the teacher's DB.WithTx.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Tx{tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// wrapNotFound translates pgx.ErrNoRows into a catalogerr.NotFound for a
// single-row lookup by a fmt.Stringer-able id; any other error passes
// through unchanged.
func wrapNotFound(err error, kind string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &catalogerr.NotFound{Kind: kind, ID: fmt.Sprint(id)}
	}
	return err
}
