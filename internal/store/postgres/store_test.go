package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/platform/db"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
)

func TestWrapClassifiesDriverErrors(t *testing.T) {
	funds := wrap("save", &pgconn.PgError{Code: "23514", ConstraintName: balanceConstraint})
	require.ErrorIs(t, funds, shared.ErrInsufficientFunds)

	check := wrap("save", &pgconn.PgError{Code: "23514", ConstraintName: "partners_share_pct_check"})
	require.ErrorIs(t, check, shared.ErrValidation)

	orphan := wrap("insert", &pgconn.PgError{Code: "23503", ConstraintName: "inventory_transactions_unit_fkey"})
	require.ErrorIs(t, orphan, shared.ErrNotFound)

	dup := wrap("insert", &pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, dup, shared.ErrConflict)

	retry := wrap("insert", &pgconn.PgError{Code: "40001"})
	require.ErrorIs(t, retry, shared.ErrPersistence)
	require.True(t, db.IsRetryable(retry))

	require.NoError(t, wrap("noop", nil))
	require.ErrorIs(t, wrap("x", errors.New("conn reset")), shared.ErrPersistence)
}

// TestStoreAgainstDatabase runs only when BIZPRO_TEST_PG_DSN points at a
// disposable database.
func TestStoreAgainstDatabase(t *testing.T) {
	dsn := os.Getenv("BIZPRO_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("BIZPRO_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.New(ctx, dsn, 4)
	require.NoError(t, err)
	s := New(pool)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))

	unit := "Test Unit " + time.Now().Format("150405.000000")
	err = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertUnit(ctx, cash.BusinessUnit{Name: unit, CreatedAt: time.Now().UTC()})
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveBalance(ctx, cash.Balance{Unit: unit, Balance: decimal.NewFromInt(-1), UpdatedAt: time.Now().UTC()})
	})
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)

	ledger := cash.NewLedger()
	err = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := ledger.Credit(ctx, tx, unit, decimal.RequireFromString("12.34"), cash.Entry{Kind: cash.MovementOpening})
		return err
	})
	require.NoError(t, err)

	bal, err := s.GetBalance(ctx, unit)
	require.NoError(t, err)
	require.Equal(t, "12.34", bal.Balance.StringFixed(2))

	movements, err := s.ListMovements(ctx, unit)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.True(t, cash.Replay(movements).Equal(bal.Balance))
}
