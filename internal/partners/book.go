package partners

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Port abstracts the partners table. PartnersForUpdate must lock every row
// of the unit for the rest of the surrounding transaction.
type Port interface {
	PartnersForUpdate(ctx context.Context, unit string) ([]Partner, error)
	InsertPartner(ctx context.Context, partner Partner) error
	UpdatePartner(ctx context.Context, partner Partner) error
	DeletePartner(ctx context.Context, unit, name string) error
}

// Book mutates partner records inside a store transaction.
type Book struct {
	now func() time.Time
}

// NewBook builds Book.
func NewBook() *Book {
	return &Book{now: func() time.Time { return time.Now().UTC() }}
}

// Add inserts a partner after checking the unit's share sum.
func (b *Book) Add(ctx context.Context, port Port, unit, name string, share decimal.Decimal) (Partner, error) {
	name = NormalizeName(name)
	if unit == "" || name == "" {
		return Partner{}, fmt.Errorf("partners: unit and name required: %w", shared.ErrValidation)
	}
	if err := ValidateShare(share); err != nil {
		return Partner{}, err
	}
	list, err := port.PartnersForUpdate(ctx, unit)
	if err != nil {
		return Partner{}, err
	}
	if _, _, err := Find(list, name); err == nil {
		return Partner{}, fmt.Errorf("%w: %s", ErrPartnerExists, name)
	}
	now := b.now()
	partner := Partner{
		Unit:      unit,
		Name:      name,
		SharePct:  share,
		Withdrawn: decimal.Zero,
		Invested:  decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ValidateShares(append(list, partner)); err != nil {
		return Partner{}, err
	}
	if err := port.InsertPartner(ctx, partner); err != nil {
		return Partner{}, err
	}
	return partner, nil
}

// UpdateShare changes a partner's share after checking the unit's share sum.
func (b *Book) UpdateShare(ctx context.Context, port Port, unit, name string, share decimal.Decimal) (Partner, error) {
	name = NormalizeName(name)
	if err := ValidateShare(share); err != nil {
		return Partner{}, err
	}
	list, err := port.PartnersForUpdate(ctx, unit)
	if err != nil {
		return Partner{}, err
	}
	partner, idx, err := Find(list, name)
	if err != nil {
		return Partner{}, err
	}
	partner.SharePct = share
	partner.UpdatedAt = b.now()
	list[idx] = partner
	if err := ValidateShares(list); err != nil {
		return Partner{}, err
	}
	if err := port.UpdatePartner(ctx, partner); err != nil {
		return Partner{}, err
	}
	return partner, nil
}

// Removal is the outcome of Remove.
type Removal struct {
	Partner    Partner         `json:"partner"`
	FreedShare decimal.Decimal `json:"freed_share_pct"`
	// Redistributed lists the remaining partners whose share grew.
	Redistributed []Partner `json:"redistributed,omitempty"`
}

// Remove deletes a partner. With redistribute set, the freed share is split
// equally among the remaining partners of the unit.
func (b *Book) Remove(ctx context.Context, port Port, unit, name string, redistribute bool) (Removal, error) {
	name = NormalizeName(name)
	list, err := port.PartnersForUpdate(ctx, unit)
	if err != nil {
		return Removal{}, err
	}
	partner, idx, err := Find(list, name)
	if err != nil {
		return Removal{}, err
	}
	if err := port.DeletePartner(ctx, unit, name); err != nil {
		return Removal{}, err
	}
	out := Removal{Partner: partner, FreedShare: partner.SharePct}
	rest := append(list[:idx:idx], list[idx+1:]...)
	if !redistribute || len(rest) == 0 {
		return out, nil
	}

	now := b.now()
	for i, extra := range SplitShare(partner.SharePct, len(rest)) {
		if !extra.IsPositive() {
			continue
		}
		p := rest[i]
		p.SharePct = p.SharePct.Add(extra)
		p.UpdatedAt = now
		rest[i] = p
		out.Redistributed = append(out.Redistributed, p)
	}
	if err := ValidateShares(rest); err != nil {
		return Removal{}, err
	}
	for _, p := range out.Redistributed {
		if err := port.UpdatePartner(ctx, p); err != nil {
			return Removal{}, err
		}
	}
	return out, nil
}

// Withdraw checks the partner's available amount against distributable and
// records the withdrawal. Cash is debited by the caller in the same transaction.
func (b *Book) Withdraw(ctx context.Context, port Port, unit, name string, amount, distributable decimal.Decimal) (Partner, error) {
	name = NormalizeName(name)
	amount, err := shared.Amount("partners: amount", amount)
	if err != nil {
		return Partner{}, err
	}
	list, err := port.PartnersForUpdate(ctx, unit)
	if err != nil {
		return Partner{}, err
	}
	partner, _, err := Find(list, name)
	if err != nil {
		return Partner{}, err
	}
	available := ProfitFor(partner, distributable).AvailableNow
	if amount.GreaterThan(available) {
		return Partner{}, fmt.Errorf("%w: %s may withdraw %s, requested %s", ErrInsufficientEntitlement, name,
			available.StringFixed(shared.MoneyPlaces), amount.StringFixed(shared.MoneyPlaces))
	}
	partner.Withdrawn = partner.Withdrawn.Add(amount)
	partner.UpdatedAt = b.now()
	if err := port.UpdatePartner(ctx, partner); err != nil {
		return Partner{}, err
	}
	return partner, nil
}

// Contribute adds allocated investment portions to partners' invested totals.
func (b *Book) Contribute(ctx context.Context, port Port, unit string, portions map[string]decimal.Decimal) ([]Partner, error) {
	list, err := port.PartnersForUpdate(ctx, unit)
	if err != nil {
		return nil, err
	}
	now := b.now()
	var updated []Partner
	for _, p := range list {
		portion, ok := portions[p.Name]
		if !ok || !portion.IsPositive() {
			continue
		}
		p.Invested = p.Invested.Add(portion)
		p.UpdatedAt = now
		if err := port.UpdatePartner(ctx, p); err != nil {
			return nil, err
		}
		updated = append(updated, p)
	}
	return updated, nil
}
