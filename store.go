package hazel

// This file holds the PostgreSQL-backed persistence layer: the
// transaction/advisory-lock primitives the entity registry, edges,
// closure, and rule tables below all share.

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	hazelsql "github.com/hazelgraph/hazel/sql"
)

// Querier executes read queries. Implemented by *sql.DB, *sql.Tx, and
// *sql.Conn, so the same query functions run inside or outside a
// transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer extends Querier with ExecContext for mutations.
type Execer interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx is a transaction handle returned by Store.BeginTx.
type Tx interface {
	Execer
	Commit() error
	Rollback() error
}

// Store is the persistence collaborator used by the registry, DAG
// engine, rule store, decision engine, and reconciler.
type Store interface {
	Execer
	// BeginTx starts a new transaction. Every mutating engine operation
	// runs inside exactly one transaction per spec section 5.
	BeginTx(ctx context.Context) (Tx, error)
	// AdvisoryLock takes a transaction-scoped PostgreSQL advisory lock
	// for the duration of fn, serializing reconciliation against concurrent
	// rule puts when the backend's isolation level alone can't.
	AdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context, tx Tx) error) error
}

// sqlDB is satisfied by *sql.DB; it is the minimal surface PG needs
// beyond Execer to open transactions.
type sqlDB interface {
	Execer
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// PG is the PostgreSQL-backed Store implementation.
type PG struct {
	db sqlDB
}

// Open wraps an existing *sql.DB (or any compatible pool) as a Store.
// The caller owns the DB's lifecycle.
func Open(db *sql.DB) *PG {
	return &PG{db: db}
}

// EnsureSchema applies the embedded schema idempotently. Call once on
// process startup before any other Store operation.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.ExecContext(ctx, hazelsql.SchemaSQL); err != nil {
		return fmt.Errorf("applying hazel schema: %w", err)
	}
	return nil
}

// QueryRowContext implements Querier by delegating to the wrapped *sql.DB.
func (p *PG) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// QueryContext implements Querier.
func (p *PG) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, query, args...)
}

// ExecContext implements Execer.
func (p *PG) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.db.ExecContext(ctx, query, args...)
}

// BeginTx implements Store.
func (p *PG) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// AdvisoryLock runs fn inside a transaction holding a PostgreSQL
// transaction-scoped advisory lock keyed by key, released automatically
// on commit or rollback. Used by the reconciler to serialize the orphan
// sweep and rebuild phases against concurrent rule mutations when the
// backend cannot offer serializable isolation (spec section 5).
func (p *PG) AdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.BeginTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Printf("[hazel] WARNING: rollback after advisory lock failure: %v", rbErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return fmt.Errorf("acquiring advisory lock: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reconciliation: %w", err)
	}
	committed = true
	return nil
}

// EngineAdvisoryLockKey is the fixed advisory lock key used for
// reconciliation runs. A single hazel engine process reconciles against
// one declaration set at a time; a fixed key (rather than one derived
// from the declaration content) keeps concurrent reconcile attempts from
// different processes serialized against each other too.
const EngineAdvisoryLockKey int64 = 0x4841_5A45_4C21 // "HAZEL!" in hex-ish

// sqlState extracts the SQLSTATE code from a PostgreSQL error, whether it
// came through lib/pq or pgx's database/sql driver. Both expose a
// SQLState() string method on their error types.
func sqlState(err error) string {
	if err == nil {
		return ""
	}
	type sqlStateErr interface{ SQLState() string }
	if e, ok := err.(sqlStateErr); ok {
		return e.SQLState()
	}
	return ""
}

// Postgres SQLSTATE codes this package checks for.
const (
	pgUniqueViolation = "23505"
)

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	return sqlState(err) == pgUniqueViolation
}
