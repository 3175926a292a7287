package partners

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Partner is a profit-sharing stakeholder of one unit.
type Partner struct {
	Unit      string          `json:"unit"`
	Name      string          `json:"name"`
	SharePct  decimal.Decimal `json:"share_pct"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
	Invested  decimal.Decimal `json:"invested"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Profit is one partner's row in the profit-sharing view.
type Profit struct {
	Unit         string          `json:"unit"`
	Partner      string          `json:"partner"`
	SharePct     decimal.Decimal `json:"share_pct"`
	Entitlement  decimal.Decimal `json:"entitlement"`
	Withdrawn    decimal.Decimal `json:"withdrawn"`
	Invested     decimal.Decimal `json:"invested"`
	AvailableNow decimal.Decimal `json:"available_now"`
}

// Entitlement is share/100 of distributable, rounded to cents.
func Entitlement(sharePct, distributable decimal.Decimal) decimal.Decimal {
	return shared.RoundMoney(sharePct.Div(shared.Hundred).Mul(distributable))
}

// AvailableNow is entitlement minus withdrawn, floored at zero and with
// sub-cent remainders suppressed.
func AvailableNow(entitlement, withdrawn decimal.Decimal) decimal.Decimal {
	return shared.FloorCents(entitlement.Sub(withdrawn))
}

// ProfitFor builds the profit row of p.
func ProfitFor(p Partner, distributable decimal.Decimal) Profit {
	ent := Entitlement(p.SharePct, distributable)
	return Profit{
		Unit:         p.Unit,
		Partner:      p.Name,
		SharePct:     p.SharePct,
		Entitlement:  ent,
		Withdrawn:    p.Withdrawn,
		Invested:     p.Invested,
		AvailableNow: AvailableNow(ent, p.Withdrawn),
	}
}

// Profits builds profit rows for every partner.
func Profits(list []Partner, distributable decimal.Decimal) []Profit {
	out := make([]Profit, 0, len(list))
	for _, p := range list {
		out = append(out, ProfitFor(p, distributable))
	}
	return out
}

// TotalShare sums share percentages.
func TotalShare(list []Partner) decimal.Decimal {
	total := decimal.Zero
	for _, p := range list {
		total = total.Add(p.SharePct)
	}
	return total
}

// ValidateShare requires a share in (0, 100] with at most two decimals.
func ValidateShare(share decimal.Decimal) error {
	if !share.IsPositive() || share.GreaterThan(shared.Hundred) {
		return fmt.Errorf("%w: got %s", ErrInvalidShare, share.String())
	}
	if !share.Equal(share.Truncate(shared.MoneyPlaces)) {
		return fmt.Errorf("%w: at most two decimals", ErrInvalidShare)
	}
	return nil
}

// ValidateShares enforces Σ share ≤ 100 over a unit's partners.
func ValidateShares(list []Partner) error {
	if total := TotalShare(list); total.GreaterThan(shared.Hundred) {
		return fmt.Errorf("%w: total %s%%", ErrShareExceeded, total.String())
	}
	return nil
}

// NormalizeName trims the surrounding whitespace of a partner name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// SplitShare divides share into n equal parts of at most two decimals. The
// leftover hundredths go to the first parts, so the parts sum to share.
func SplitShare(share decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	count := decimal.NewFromInt(int64(n))
	base := share.Div(count).Truncate(shared.MoneyPlaces)
	step := decimal.New(1, -shared.MoneyPlaces)
	left := share.Sub(base.Mul(count))
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = base
		if left.IsPositive() {
			out[i] = out[i].Add(step)
			left = left.Sub(step)
		}
	}
	return out
}

// Find returns the partner named name.
func Find(list []Partner, name string) (Partner, int, error) {
	for i, p := range list {
		if p.Name == name {
			return p, i, nil
		}
	}
	return Partner{}, -1, fmt.Errorf("%w: %s", ErrPartnerNotFound, name)
}

var (
	ErrPartnerNotFound = fmt.Errorf("partners: partner %w", shared.ErrNotFound)
	ErrPartnerExists   = fmt.Errorf("partners: partner already exists: %w", shared.ErrConflict)
	ErrInvalidShare    = fmt.Errorf("partners: share must be within (0, 100]: %w", shared.ErrValidation)
	ErrShareExceeded   = fmt.Errorf("partners: shares exceed 100%%: %w", shared.ErrValidation)
	// ErrInsufficientEntitlement triggered when a withdrawal exceeds AvailableNow.
	ErrInsufficientEntitlement = fmt.Errorf("partners: %w", shared.ErrInsufficientEntitlement)
)
