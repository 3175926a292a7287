package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
)

func seedUnit(t *testing.T, s *Store, name string) {
	t.Helper()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertUnit(ctx, cash.BusinessUnit{Name: name, OpeningBalance: decimal.Zero})
	})
	require.NoError(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	seedUnit(t, s, "Unit A")
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.AppendInventory(ctx, inventory.Transaction{ID: "1", Unit: "Unit A"}); err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, cash.Balance{Unit: "Unit A", Balance: decimal.NewFromInt(5)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	items, err := s.ListInventory(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, items)
	bal, err := s.GetBalance(context.Background(), "Unit A")
	require.NoError(t, err)
	require.True(t, bal.Balance.IsZero())
}

func TestUnitsAndBalances(t *testing.T) {
	s := New()
	seedUnit(t, s, "Unit A")
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertUnit(ctx, cash.BusinessUnit{Name: "Unit A"})
	})
	require.ErrorIs(t, err, cash.ErrUnitExists)

	_, err = s.GetBalance(ctx, "Unit Z")
	require.ErrorIs(t, err, shared.ErrNotFound)

	err = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveBalance(ctx, cash.Balance{Unit: "Unit A", Balance: decimal.NewFromInt(-1)})
	})
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)
}

func TestIdempotencyKeys(t *testing.T) {
	s := New()
	ctx := context.Background()
	claim := func(key string) error {
		return s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.ClaimIdempotencyKey(ctx, key)
		})
	}

	require.NoError(t, claim("purchase:abc"))
	require.ErrorIs(t, claim("purchase:abc"), shared.ErrDuplicateSubmission)

	n, err := s.PurgeIdempotencyKeys(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, claim("purchase:abc"))
}

func TestResetKeepsUnitsAndAudit(t *testing.T) {
	s := New()
	seedUnit(t, s, "Unit A")
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SaveBalance(ctx, cash.Balance{Unit: "Unit A", Balance: decimal.NewFromInt(9)}); err != nil {
			return err
		}
		if err := tx.AppendInventory(ctx, inventory.Transaction{ID: "1", Unit: "Unit A"}); err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{Action: "test"}); err != nil {
			return err
		}
		return tx.ResetLedger(ctx)
	})
	require.NoError(t, err)

	units, _ := s.ListUnits(ctx)
	require.Len(t, units, 1)
	bal, _ := s.GetBalance(ctx, "Unit A")
	require.True(t, bal.Balance.IsZero())
	items, _ := s.ListInventory(ctx, "Unit A")
	require.Empty(t, items)
	logs, _ := s.ListAudit(ctx, 10)
	require.Len(t, logs, 1)
	require.False(t, logs[0].At.IsZero())
}
