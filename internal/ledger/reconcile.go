package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/store"
)

// Discrepancy is one disagreement between a stored total and its trail.
type Discrepancy struct {
	Unit     string          `json:"unit"`
	Subject  string          `json:"subject"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s %s: stored %s, trail %s", d.Unit, d.Subject, money(d.Stored), money(d.Computed))
}

// Reconciliation is the result of checking one unit.
type Reconciliation struct {
	Unit          string          `json:"unit"`
	Balance       decimal.Decimal `json:"balance"`
	Replayed      decimal.Decimal `json:"replayed"`
	Discrepancies []Discrepancy   `json:"discrepancies"`
	CheckedAt     time.Time       `json:"checked_at"`
}

// OK reports whether the unit reconciled cleanly.
func (r Reconciliation) OK() bool {
	return len(r.Discrepancies) == 0
}

// Reconcile checks that the unit's balance equals the replay of its
// movements and that each partner's withdrawn and invested totals equal
// their expense trails. Reads run in one transaction for a consistent view.
func (s *Service) Reconcile(ctx context.Context, unit string) (Reconciliation, error) {
	if unit == "" {
		return Reconciliation{}, ErrUnitRequired
	}
	var out Reconciliation
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		balance, err := tx.GetBalance(ctx, unit)
		if err != nil {
			return err
		}
		movements, err := tx.ListMovements(ctx, unit)
		if err != nil {
			return err
		}
		list, err := tx.ListExpenses(ctx, unit)
		if err != nil {
			return err
		}
		members, err := tx.ListPartners(ctx, unit)
		if err != nil {
			return err
		}

		replayed := cash.Replay(movements)
		out = Reconciliation{Unit: unit, Balance: balance.Balance, Replayed: replayed, CheckedAt: time.Now().UTC()}
		if !replayed.Equal(balance.Balance) {
			out.Discrepancies = append(out.Discrepancies, Discrepancy{Unit: unit, Subject: "cash balance", Stored: balance.Balance, Computed: replayed})
		}
		withdrawn := expenses.PartnerTotals(list, expenses.PartnerWithdrawal)
		invested := expenses.PartnerTotals(list, expenses.PartnerContribution)
		for _, p := range members {
			if trail := withdrawn[p.Name]; !trail.Equal(p.Withdrawn) {
				out.Discrepancies = append(out.Discrepancies, Discrepancy{Unit: unit, Subject: p.Name + " withdrawn", Stored: p.Withdrawn, Computed: trail})
			}
			if trail := invested[p.Name]; !trail.Equal(p.Invested) {
				out.Discrepancies = append(out.Discrepancies, Discrepancy{Unit: unit, Subject: p.Name + " invested", Stored: p.Invested, Computed: trail})
			}
		}
		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}
	for _, d := range out.Discrepancies {
		s.logger.Warn("reconciliation discrepancy", "unit", d.Unit, "subject", d.Subject,
			"stored", money(d.Stored), "computed", money(d.Computed))
	}
	return out, nil
}

// ReconcileAll reconciles every registered unit.
func (s *Service) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Reconciliation, 0, len(units))
	for _, name := range sortedUnits(units) {
		rec, err := s.Reconcile(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
