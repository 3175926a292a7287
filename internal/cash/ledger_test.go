package cash

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/newdim001/biz-pro/internal/shared"
)

type memoryPort struct {
	balances  map[string]Balance
	movements []Movement
}

func newMemoryPort(unit string, opening string) *memoryPort {
	return &memoryPort{balances: map[string]Balance{
		unit: {Unit: unit, Balance: decimal.RequireFromString(opening)},
	}}
}

func (p *memoryPort) BalanceForUpdate(ctx context.Context, unit string) (Balance, error) {
	bal, ok := p.balances[unit]
	if !ok {
		return Balance{}, ErrUnitNotFound
	}
	return bal, nil
}

func (p *memoryPort) SaveBalance(ctx context.Context, balance Balance) error {
	p.balances[balance.Unit] = balance
	return nil
}

func (p *memoryPort) AppendMovement(ctx context.Context, movement Movement) error {
	p.movements = append(p.movements, movement)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreditAndDebit(t *testing.T) {
	port := newMemoryPort("Unit A", "100.00")
	ledger := NewLedger()
	ctx := context.Background()

	m, err := ledger.Credit(ctx, port, "Unit A", dec("25.50"), Entry{Kind: MovementSale, Counterparty: "customer"})
	require.NoError(t, err)
	require.Equal(t, "125.50", m.BalanceAfter.StringFixed(2))
	require.Equal(t, "customer", m.From)
	require.Equal(t, "Unit A", m.To)

	m, err = ledger.Debit(ctx, port, "Unit A", dec("125.50"), Entry{Kind: MovementPurchase, Counterparty: "supplier"})
	require.NoError(t, err)
	require.True(t, m.BalanceAfter.IsZero())
	require.Equal(t, "Unit A", m.From)
	require.Len(t, port.movements, 2)
}

func TestDebitInsufficientFundsHasNoEffect(t *testing.T) {
	port := newMemoryPort("Unit A", "10.00")
	ledger := NewLedger()

	_, err := ledger.Debit(context.Background(), port, "Unit A", dec("10.01"), Entry{Kind: MovementExpense})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)
	require.Equal(t, "10.00", port.balances["Unit A"].Balance.StringFixed(2))
	require.Empty(t, port.movements)
}

func TestAdjustRejectsInvalidAmounts(t *testing.T) {
	port := newMemoryPort("Unit A", "10.00")
	ledger := NewLedger()
	ctx := context.Background()

	_, err := ledger.Credit(ctx, port, "Unit A", decimal.Zero, Entry{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = ledger.Credit(ctx, port, "Unit A", dec("0.005"), Entry{})
	require.ErrorIs(t, err, shared.ErrBelowMinimum)

	_, err = ledger.Adjust(ctx, port, "Unit A", dec("1"), Direction("sideways"), Entry{})
	require.ErrorIs(t, err, ErrInvalidDirection)

	_, err = ledger.Credit(ctx, port, "Unit Z", dec("1"), Entry{})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, port.movements)
}

func TestBalanceNeverNegativeUnderRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()
	ledger := NewLedger()

	for run := 0; run < 50; run++ {
		port := newMemoryPort("Unit A", "500.00")
		for step := 0; step < 200; step++ {
			amount := decimal.New(int64(rng.Intn(40000)+1), -2)
			direction := Credit
			if rng.Intn(3) > 0 {
				direction = Debit
			}
			_, err := ledger.Adjust(ctx, port, "Unit A", amount, direction, Entry{Kind: MovementExpense})
			if err != nil {
				require.ErrorIs(t, err, ErrInsufficientFunds)
			}
			require.False(t, port.balances["Unit A"].Balance.IsNegative())
		}
		require.True(t, Replay(port.movements).Add(dec("500.00")).Equal(port.balances["Unit A"].Balance))
	}
}
