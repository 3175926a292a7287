package investments

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Investment is external capital injected into a unit.
type Investment struct {
	ID          string          `json:"id"`
	Unit        string          `json:"unit"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Investor    string          `json:"investor"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RecordInput describes an investment to append.
type RecordInput struct {
	Unit        string
	Date        time.Time
	Amount      decimal.Decimal
	Investor    string
	Description string
}

// Stake is a partner's share used for pro-rata distribution.
type Stake struct {
	Partner  string
	SharePct decimal.Decimal
}

// Allocation is one partner's portion of an investment.
type Allocation struct {
	Partner string          `json:"partner"`
	Amount  decimal.Decimal `json:"amount"`
}

// Allocate splits amount across stakes by share / Σshare. Portions are
// rounded to cents and capped by what is left, and the last stake absorbs
// the remainder, so no portion is negative and the result sums to amount
// exactly. Stakes with no share receive nothing.
func Allocate(amount decimal.Decimal, stakes []Stake) []Allocation {
	total := decimal.Zero
	eligible := make([]Stake, 0, len(stakes))
	for _, s := range stakes {
		if s.SharePct.IsPositive() {
			total = total.Add(s.SharePct)
			eligible = append(eligible, s)
		}
	}
	if total.IsZero() {
		return nil
	}

	out := make([]Allocation, 0, len(eligible))
	assigned := decimal.Zero
	for i, s := range eligible {
		left := amount.Sub(assigned)
		portion := decimal.Min(shared.RoundMoney(amount.Mul(s.SharePct).Div(total)), left)
		if i == len(eligible)-1 {
			portion = left
		}
		assigned = assigned.Add(portion)
		out = append(out, Allocation{Partner: s.Partner, Amount: portion})
	}
	return out
}

// Total sums investments.
func Total(list []Investment) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range list {
		total = total.Add(inv.Amount)
	}
	return total
}

var (
	ErrInvestorRequired   = fmt.Errorf("investments: investor required: %w", shared.ErrValidation)
	ErrInvestmentNotFound = fmt.Errorf("investments: investment %w", shared.ErrNotFound)
)
