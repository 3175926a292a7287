package cash

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Port is the slice of the store the cash ledger needs. BalanceForUpdate
// must lock the row for the rest of the surrounding transaction.
type Port interface {
	BalanceForUpdate(ctx context.Context, unit string) (Balance, error)
	SaveBalance(ctx context.Context, balance Balance) error
	AppendMovement(ctx context.Context, movement Movement) error
}

// Ledger applies credits and debits to unit balances.
type Ledger struct {
	now func() time.Time
}

// NewLedger builds Ledger.
func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

// Credit adds amount to the unit balance.
func (l *Ledger) Credit(ctx context.Context, port Port, unit string, amount decimal.Decimal, entry Entry) (Movement, error) {
	return l.Adjust(ctx, port, unit, amount, Credit, entry)
}

// Debit removes amount from the unit balance, failing without effect when funds are short.
func (l *Ledger) Debit(ctx context.Context, port Port, unit string, amount decimal.Decimal, entry Entry) (Movement, error) {
	return l.Adjust(ctx, port, unit, amount, Debit, entry)
}

// Adjust moves cash in the given direction and appends the matching movement.
func (l *Ledger) Adjust(ctx context.Context, port Port, unit string, amount decimal.Decimal, direction Direction, entry Entry) (Movement, error) {
	if unit == "" {
		return Movement{}, fmt.Errorf("cash: unit required: %w", shared.ErrValidation)
	}
	amount, err := shared.Amount("cash: amount", amount)
	if err != nil {
		return Movement{}, err
	}
	if direction != Credit && direction != Debit {
		return Movement{}, ErrInvalidDirection
	}

	balance, err := port.BalanceForUpdate(ctx, unit)
	if err != nil {
		return Movement{}, err
	}

	next := balance.Balance
	from, to := entry.Counterparty, unit
	switch direction {
	case Credit:
		next = next.Add(amount)
	case Debit:
		if balance.Balance.LessThan(amount) {
			return Movement{}, fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, unit, balance.Balance.StringFixed(shared.MoneyPlaces), amount.StringFixed(shared.MoneyPlaces))
		}
		next = next.Sub(amount)
		from, to = unit, entry.Counterparty
	}

	now := l.now()
	balance.Balance = next
	balance.UpdatedAt = now
	if err := port.SaveBalance(ctx, balance); err != nil {
		return Movement{}, err
	}

	movement := Movement{
		ID:           uuid.NewString(),
		Unit:         unit,
		Kind:         entry.Kind,
		Direction:    direction,
		Amount:       amount,
		BalanceAfter: next,
		From:         from,
		To:           to,
		Reference:    entry.Reference,
		Description:  entry.Description,
		At:           now,
	}
	if err := port.AppendMovement(ctx, movement); err != nil {
		return Movement{}, err
	}
	return movement, nil
}

// Replay folds movements from zero. Opening balances are themselves credit
// movements, so the result must equal the stored balance.
func Replay(movements []Movement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		switch m.Direction {
		case Credit:
			total = total.Add(m.Amount)
		case Debit:
			total = total.Sub(m.Amount)
		}
	}
	return total
}
