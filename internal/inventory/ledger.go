package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Port abstracts the inventory table.
type Port interface {
	AppendInventory(ctx context.Context, tx Transaction) error
	DeleteInventory(ctx context.Context, id string) error
	ListInventory(ctx context.Context, unit string) ([]Transaction, error)
}

// Ledger appends purchases and sales. It never touches cash.
type Ledger struct {
	allowNeg bool
	now      func() time.Time
}

// LedgerConfig groups optional settings.
type LedgerConfig struct {
	AllowNegativeStock bool
}

// NewLedger builds Ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	return &Ledger{allowNeg: cfg.AllowNegativeStock, now: func() time.Time { return time.Now().UTC() }}
}

// Record validates input and appends an immutable transaction.
func (l *Ledger) Record(ctx context.Context, port Port, input RecordInput) (Transaction, error) {
	if input.Unit == "" {
		return Transaction{}, fmt.Errorf("inventory: unit required: %w", shared.ErrValidation)
	}
	if !input.Type.Valid() {
		return Transaction{}, ErrInvalidType
	}
	qty, err := shared.Quantity("inventory: quantity_kg", input.QuantityKg)
	if err != nil {
		return Transaction{}, err
	}
	price, err := shared.Price("inventory: unit_price", input.UnitPrice)
	if err != nil {
		return Transaction{}, err
	}

	if input.Type == Sale && !l.allowNeg {
		history, err := port.ListInventory(ctx, input.Unit)
		if err != nil {
			return Transaction{}, err
		}
		if stock := Summarize(history).Stock(); stock.LessThan(qty) {
			return Transaction{}, fmt.Errorf("%w: %s has %s kg, sale needs %s kg", ErrNegativeStock, input.Unit, stock.String(), qty.String())
		}
	}

	now := l.now()
	date := input.Date
	if date.IsZero() {
		date = now
	}
	tx := Transaction{
		ID:          uuid.NewString(),
		Unit:        input.Unit,
		Date:        truncateDay(date),
		Type:        input.Type,
		QuantityKg:  qty,
		UnitPrice:   price,
		TotalAmount: TotalAmount(qty, price),
		Remarks:     input.Remarks,
		CreatedAt:   now,
	}
	if err := port.AppendInventory(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Rollback removes a record appended by the same compound operation.
func (l *Ledger) Rollback(ctx context.Context, port Port, id string) error {
	return port.DeleteInventory(ctx, id)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
