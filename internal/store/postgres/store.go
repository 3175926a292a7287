// Package postgres implements the ledger store on PostgreSQL with pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newdim001/biz-pro/internal/platform/db"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
)

//go:embed schema.sql
var schema string

// balanceConstraint keeps cash balances non-negative at the database level.
const balanceConstraint = "cash_balances_non_negative"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the ledger in PostgreSQL.
type Store struct {
	queries
	pool *pgxpool.Pool
	now  func() time.Time
}

// queries runs statements against either the pool or an open transaction.
type queries struct {
	q querier
}

// New constructs Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{q: pool}, pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

var _ store.Store = (*Store)(nil)

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return wrap("migrate", err)
	}
	return nil
}

// WithTx executes fn inside a SERIALIZABLE transaction, replaying it on
// serialization failures.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{queries: queries{q: tx}, now: s.now})
	})
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.pool.Ping(ctx))
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

type txStore struct {
	queries
	now func() time.Time
}

var _ store.Tx = (*txStore)(nil)

// wrap classifies driver errors into ledger error kinds. The driver error
// stays in the chain so retry detection keeps working.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("postgres: %s: %w", op, shared.ErrNotFound)
	case db.IsCheckViolation(err) && db.ConstraintName(err) == balanceConstraint:
		return fmt.Errorf("postgres: %s: %w: %w", op, shared.ErrInsufficientFunds, err)
	case db.IsCheckViolation(err):
		return fmt.Errorf("postgres: %s: %w: %w", op, shared.ErrValidation, err)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("postgres: %s: %w: %w", op, shared.ErrNotFound, err)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("postgres: %s: %w: %w", op, shared.ErrConflict, err)
	default:
		return fmt.Errorf("postgres: %s: %w: %w", op, shared.ErrPersistence, err)
	}
}

func unitFilter(unit string) (string, []any) {
	if unit == "" {
		return "", nil
	}
	return " WHERE unit = $1", []any{unit}
}
