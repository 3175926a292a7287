package investments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/newdim001/biz-pro/internal/shared"
)

type memoryPort struct {
	items []Investment
}

func (p *memoryPort) AppendInvestment(ctx context.Context, inv Investment) error {
	p.items = append(p.items, inv)
	return nil
}

func (p *memoryPort) DeleteInvestment(ctx context.Context, id string) error {
	return ErrInvestmentNotFound
}

func (p *memoryPort) ListInvestments(ctx context.Context, unit string) ([]Investment, error) {
	return p.items, nil
}

func TestAllocateSumsExactly(t *testing.T) {
	amount := decimal.RequireFromString("100.00")
	stakes := []Stake{
		{Partner: "A", SharePct: decimal.NewFromInt(1)},
		{Partner: "B", SharePct: decimal.NewFromInt(1)},
		{Partner: "C", SharePct: decimal.NewFromInt(1)},
	}
	got := Allocate(amount, stakes)
	require.Len(t, got, 3)
	require.Equal(t, "33.33", got[0].Amount.StringFixed(2))
	require.Equal(t, "33.33", got[1].Amount.StringFixed(2))
	require.Equal(t, "33.34", got[2].Amount.StringFixed(2))

	sum := decimal.Zero
	for _, a := range got {
		sum = sum.Add(a.Amount)
	}
	require.True(t, sum.Equal(amount))
}

func TestAllocateNeverExceedsAmount(t *testing.T) {
	amount := decimal.RequireFromString("0.02")
	stakes := make([]Stake, 0, 4)
	for _, name := range []string{"A", "B", "C", "D"} {
		stakes = append(stakes, Stake{Partner: name, SharePct: decimal.NewFromInt(25)})
	}
	got := Allocate(amount, stakes)
	require.Len(t, got, 4)

	sum := decimal.Zero
	for _, a := range got {
		require.False(t, a.Amount.IsNegative(), "%s got %s", a.Partner, a.Amount)
		sum = sum.Add(a.Amount)
	}
	require.True(t, sum.Equal(amount), "distributed %s", sum)
	require.Equal(t, "0.01", got[0].Amount.StringFixed(2))
	require.Equal(t, "0.01", got[1].Amount.StringFixed(2))
	require.True(t, got[2].Amount.IsZero())
	require.True(t, got[3].Amount.IsZero())
}

func TestAllocateUsesShareRatio(t *testing.T) {
	got := Allocate(decimal.NewFromInt(1000), []Stake{
		{Partner: "Ali", SharePct: decimal.NewFromInt(30)},
		{Partner: "Ghost", SharePct: decimal.Zero},
		{Partner: "Mariam", SharePct: decimal.NewFromInt(20)},
	})
	require.Len(t, got, 2)
	require.Equal(t, "600.00", got[0].Amount.StringFixed(2))
	require.Equal(t, "400.00", got[1].Amount.StringFixed(2))

	require.Nil(t, Allocate(decimal.NewFromInt(10), nil))
}

func TestRecordInvestment(t *testing.T) {
	port := &memoryPort{}
	ledger := NewLedger()
	ctx := context.Background()

	inv, err := ledger.Record(ctx, port, RecordInput{Unit: "Unit B", Amount: decimal.RequireFromString("2500"), Investor: " Fund "})
	require.NoError(t, err)
	require.Equal(t, "Fund", inv.Investor)
	require.Equal(t, "2500", Total(port.items).String())

	_, err = ledger.Record(ctx, port, RecordInput{Unit: "Unit B", Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrInvestorRequired)

	_, err = ledger.Record(ctx, port, RecordInput{Unit: "Unit B", Amount: decimal.Zero, Investor: "x"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
