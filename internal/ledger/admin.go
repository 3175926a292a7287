package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/market"
	"github.com/newdim001/biz-pro/internal/partners"
	"github.com/newdim001/biz-pro/internal/platform/lock"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
)

// ResetPhrase must be typed verbatim to confirm a reset.
const ResetPhrase = "RESET MY DATA"

var (
	// ErrResetNotConfirmed rejects a reset without the confirmation phrase.
	ErrResetNotConfirmed = fmt.Errorf("ledger: reset requires the phrase %q: %w", ResetPhrase, shared.ErrValidation)
	// ErrUnitRequired rejects unit-scoped queries without a unit.
	ErrUnitRequired = fmt.Errorf("ledger: unit required: %w", shared.ErrValidation)
)

// ResetResult reports what a reset restored.
type ResetResult struct {
	Units          []string        `json:"units"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	DefaultPrice   decimal.Decimal `json:"default_price"`
	At             time.Time       `json:"at"`
}

// Reset clears every ledger table except units, users and audit, restores
// each unit to the opening balance and seeds the default market price.
func (s *Service) Reset(ctx context.Context, confirmation string) (ResetResult, error) {
	if confirmation != ResetPhrase {
		return ResetResult{}, ErrResetNotConfirmed
	}
	start := time.Now()
	var result ResetResult
	err := s.locked(ctx, shared.ResetLockKey(), func() error {
		units, err := s.store.ListUnits(ctx)
		if err != nil {
			return err
		}
		names := sortedUnits(units)
		releases := make([]lock.Release, 0, len(names))
		defer func() {
			for _, release := range releases {
				release()
			}
		}()
		for _, name := range names {
			release, err := s.locker.Acquire(ctx, shared.UnitLockKey(name))
			if err != nil {
				return err
			}
			releases = append(releases, release)
		}

		return s.transact(ctx, OpReset, "", func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
			if err := tx.ResetLedger(ctx); err != nil {
				return shared.AuditLog{}, err
			}
			for _, name := range names {
				if err := s.fund(ctx, tx, name, s.cfg.OpeningBalance, cash.MovementReset); err != nil {
					return shared.AuditLog{}, err
				}
			}
			if s.cfg.DefaultPrice.IsPositive() {
				if _, err := s.market.Record(ctx, tx, s.cfg.DefaultPrice); err != nil {
					return shared.AuditLog{}, err
				}
			}
			result = ResetResult{Units: names, OpeningBalance: s.cfg.OpeningBalance, DefaultPrice: s.cfg.DefaultPrice, At: time.Now().UTC()}
			return shared.AuditLog{
				Entity: "ledger",
				Meta:   map[string]any{"units": names, "opening_balance": money(s.cfg.OpeningBalance)},
			}, nil
		})
	})
	s.observe(OpReset, err, start)
	if err != nil {
		return ResetResult{}, err
	}
	s.logger.Warn("ledger reset", slog.String("actor", shared.ActorFromContext(ctx)), slog.Int("units", len(result.Units)))
	return result, nil
}

// SeedPartner is a default partner created by Seed.
type SeedPartner struct {
	Unit     string
	Name     string
	SharePct decimal.Decimal
}

// SeedInput lists what Seed should make sure exists.
type SeedInput struct {
	Units    []string
	Partners []SeedPartner
}

// DefaultSeed is the initial layout: two units with two equal partners in Unit B.
func DefaultSeed() SeedInput {
	fifty := decimal.NewFromInt(50)
	return SeedInput{
		Units: []string{"Unit A", "Unit B"},
		Partners: []SeedPartner{
			{Unit: "Unit B", Name: "Ali", SharePct: fifty},
			{Unit: "Unit B", Name: "Mariam", SharePct: fifty},
		},
	}
}

// SeedResult reports what Seed created.
type SeedResult struct {
	Units    []string           `json:"units"`
	Partners []partners.Partner `json:"partners"`
	Price    *market.Price      `json:"price,omitempty"`
}

// Seed creates missing units, partners and the default price. Existing
// records are left untouched, so Seed can run on every start.
func (s *Service) Seed(ctx context.Context, input SeedInput) (SeedResult, error) {
	var result SeedResult
	existing, err := s.store.ListUnits(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	known := make(map[string]bool, len(existing))
	for _, u := range existing {
		known[u.Name] = true
	}
	for _, name := range input.Units {
		if known[name] {
			continue
		}
		if _, err := s.RegisterUnit(ctx, name, nil); err != nil && !errors.Is(err, shared.ErrConflict) {
			return SeedResult{}, err
		}
		known[name] = true
		result.Units = append(result.Units, name)
	}
	for _, sp := range input.Partners {
		p, err := s.AddPartner(ctx, sp.Unit, sp.Name, sp.SharePct)
		switch {
		case err == nil:
			result.Partners = append(result.Partners, p)
		case errors.Is(err, partners.ErrPartnerExists), errors.Is(err, partners.ErrShareExceeded):
		default:
			return SeedResult{}, err
		}
	}
	if s.cfg.DefaultPrice.IsPositive() {
		err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, ok, err := market.Current(ctx, tx); err != nil || ok {
				return err
			}
			price, err := s.market.Record(ctx, tx, s.cfg.DefaultPrice)
			if err != nil {
				return err
			}
			result.Price = &price
			return nil
		})
		if err != nil {
			return SeedResult{}, err
		}
		if result.Price != nil {
			s.invalidate(ctx)
		}
	}
	s.audit(ctx, OpSeed, shared.AuditLog{Entity: "ledger", Meta: map[string]any{"units": result.Units, "partners": len(result.Partners)}})
	return result, nil
}
