package investments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Port abstracts the investments table.
type Port interface {
	AppendInvestment(ctx context.Context, investment Investment) error
	DeleteInvestment(ctx context.Context, id string) error
	ListInvestments(ctx context.Context, unit string) ([]Investment, error)
}

// Ledger appends investment records.
type Ledger struct {
	now func() time.Time
}

// NewLedger builds Ledger.
func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

// Record validates and appends an investment.
func (l *Ledger) Record(ctx context.Context, port Port, input RecordInput) (Investment, error) {
	if input.Unit == "" {
		return Investment{}, fmt.Errorf("investments: unit required: %w", shared.ErrValidation)
	}
	investor := strings.TrimSpace(input.Investor)
	if investor == "" {
		return Investment{}, ErrInvestorRequired
	}
	amount, err := shared.Amount("investments: amount", input.Amount)
	if err != nil {
		return Investment{}, err
	}
	now := l.now()
	date := input.Date
	if date.IsZero() {
		date = now
	}
	y, m, d := date.UTC().Date()
	inv := Investment{
		ID:          uuid.NewString(),
		Unit:        input.Unit,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Amount:      amount,
		Investor:    investor,
		Description: input.Description,
		CreatedAt:   now,
	}
	if err := port.AppendInvestment(ctx, inv); err != nil {
		return Investment{}, err
	}
	return inv, nil
}
