package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/investments"
	"github.com/newdim001/biz-pro/internal/market"
	"github.com/newdim001/biz-pro/internal/partners"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
)

type tx struct {
	reader
	now func() time.Time
}

var _ store.Tx = (*tx)(nil)

func (t *tx) InsertUnit(ctx context.Context, unit cash.BusinessUnit) error {
	for _, u := range t.data.units {
		if u.Name == unit.Name {
			return fmt.Errorf("%w: %s", cash.ErrUnitExists, unit.Name)
		}
	}
	t.data.units = append(t.data.units, unit)
	t.data.balances[unit.Name] = cash.Balance{Unit: unit.Name, Balance: decimal.Zero, UpdatedAt: unit.CreatedAt}
	return nil
}

func (t *tx) BalanceForUpdate(ctx context.Context, unit string) (cash.Balance, error) {
	return t.GetBalance(ctx, unit)
}

func (t *tx) SaveBalance(ctx context.Context, balance cash.Balance) error {
	if _, ok := t.data.balances[balance.Unit]; !ok {
		return fmt.Errorf("%w: %s", cash.ErrUnitNotFound, balance.Unit)
	}
	if balance.Balance.IsNegative() {
		return fmt.Errorf("memory: balance of %s would be negative: %w", balance.Unit, shared.ErrInsufficientFunds)
	}
	t.data.balances[balance.Unit] = balance
	return nil
}

func (t *tx) AppendMovement(ctx context.Context, movement cash.Movement) error {
	t.data.movements = append(t.data.movements, movement)
	return nil
}

func (t *tx) AppendInventory(ctx context.Context, record inventory.Transaction) error {
	t.data.inventory = append(t.data.inventory, record)
	return nil
}

func (t *tx) DeleteInventory(ctx context.Context, id string) error {
	for i, rec := range t.data.inventory {
		if rec.ID == id {
			t.data.inventory = append(t.data.inventory[:i:i], t.data.inventory[i+1:]...)
			return nil
		}
	}
	return inventory.ErrTransactionNotFound
}

func (t *tx) AppendExpense(ctx context.Context, expense expenses.Expense) error {
	t.data.expenses = append(t.data.expenses, expense)
	return nil
}

func (t *tx) DeleteExpense(ctx context.Context, id string) error {
	for i, rec := range t.data.expenses {
		if rec.ID == id {
			t.data.expenses = append(t.data.expenses[:i:i], t.data.expenses[i+1:]...)
			return nil
		}
	}
	return expenses.ErrExpenseNotFound
}

func (t *tx) AppendInvestment(ctx context.Context, investment investments.Investment) error {
	t.data.investments = append(t.data.investments, investment)
	return nil
}

func (t *tx) DeleteInvestment(ctx context.Context, id string) error {
	for i, rec := range t.data.investments {
		if rec.ID == id {
			t.data.investments = append(t.data.investments[:i:i], t.data.investments[i+1:]...)
			return nil
		}
	}
	return investments.ErrInvestmentNotFound
}

func (t *tx) PartnersForUpdate(ctx context.Context, unit string) ([]partners.Partner, error) {
	return t.ListPartners(ctx, unit)
}

func (t *tx) InsertPartner(ctx context.Context, partner partners.Partner) error {
	for _, p := range t.data.partners {
		if p.Unit == partner.Unit && p.Name == partner.Name {
			return partners.ErrPartnerExists
		}
	}
	t.data.partners = append(t.data.partners, partner)
	return nil
}

func (t *tx) UpdatePartner(ctx context.Context, partner partners.Partner) error {
	for i, p := range t.data.partners {
		if p.Unit == partner.Unit && p.Name == partner.Name {
			t.data.partners[i] = partner
			return nil
		}
	}
	return partners.ErrPartnerNotFound
}

func (t *tx) DeletePartner(ctx context.Context, unit, name string) error {
	for i, p := range t.data.partners {
		if p.Unit == unit && p.Name == name {
			t.data.partners = append(t.data.partners[:i:i], t.data.partners[i+1:]...)
			return nil
		}
	}
	return partners.ErrPartnerNotFound
}

func (t *tx) AppendPrice(ctx context.Context, price market.Price) error {
	t.data.prices = append(t.data.prices, price)
	return nil
}

func (t *tx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	if log.At.IsZero() {
		log.At = t.now()
	}
	t.data.audit = append(t.data.audit, log)
	return nil
}

func (t *tx) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if _, ok := t.data.idempotency[key]; ok {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateSubmission, key)
	}
	t.data.idempotency[key] = t.now()
	return nil
}

func (t *tx) ResetLedger(ctx context.Context) error {
	now := t.now()
	t.data.movements = nil
	t.data.inventory = nil
	t.data.expenses = nil
	t.data.investments = nil
	t.data.partners = nil
	t.data.prices = nil
	t.data.idempotency = make(map[string]time.Time)
	for unit := range t.data.balances {
		t.data.balances[unit] = cash.Balance{Unit: unit, Balance: decimal.Zero, UpdatedAt: now}
	}
	return nil
}
