package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Port abstracts the expenses table.
type Port interface {
	AppendExpense(ctx context.Context, expense Expense) error
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, unit string) ([]Expense, error)
}

// Ledger appends expense records. Cash is debited by the caller.
type Ledger struct {
	now func() time.Time
}

// NewLedger builds Ledger.
func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

// Record appends an operating expense.
func (l *Ledger) Record(ctx context.Context, port Port, input RecordInput) (Expense, error) {
	if input.Unit == "" {
		return Expense{}, fmt.Errorf("expenses: unit required: %w", shared.ErrValidation)
	}
	category, err := NormalizeCategory(input.Category)
	if err != nil {
		return Expense{}, err
	}
	if category.IsPartnerEvent() {
		return Expense{}, ErrPartnerCategory
	}
	method, err := NormalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return Expense{}, err
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return Expense{}, ErrDescriptionRequired
	}
	amount, err := shared.Amount("expenses: amount", input.Amount)
	if err != nil {
		return Expense{}, err
	}
	return l.append(ctx, port, Expense{
		Unit:          input.Unit,
		Date:          input.Date,
		Category:      category,
		Amount:        amount,
		Description:   description,
		PaymentMethod: method,
	})
}

// RecordPartner appends a partner withdrawal or contribution entry.
func (l *Ledger) RecordPartner(ctx context.Context, port Port, input PartnerInput) (Expense, error) {
	if !input.Category.IsPartnerEvent() {
		return Expense{}, ErrInvalidCategory
	}
	if input.Unit == "" || input.Partner == "" {
		return Expense{}, fmt.Errorf("expenses: unit and partner required: %w", shared.ErrValidation)
	}
	amount, err := shared.Amount("expenses: amount", input.Amount)
	if err != nil {
		return Expense{}, err
	}
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("%s - %s", input.Category, input.Partner)
	}
	return l.append(ctx, port, Expense{
		Unit:          input.Unit,
		Category:      input.Category,
		Amount:        amount,
		Description:   description,
		PaymentMethod: BankTransfer,
		Partner:       input.Partner,
	})
}

// Rollback removes an expense appended by the same compound operation.
func (l *Ledger) Rollback(ctx context.Context, port Port, id string) error {
	return port.DeleteExpense(ctx, id)
}

func (l *Ledger) append(ctx context.Context, port Port, expense Expense) (Expense, error) {
	now := l.now()
	if expense.Date.IsZero() {
		expense.Date = now
	}
	y, m, d := expense.Date.UTC().Date()
	expense.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	expense.ID = uuid.NewString()
	expense.CreatedAt = now
	if err := port.AppendExpense(ctx, expense); err != nil {
		return Expense{}, err
	}
	return expense, nil
}
