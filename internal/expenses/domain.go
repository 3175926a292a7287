package expenses

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Category classifies an expense.
type Category string

const (
	Operational Category = "Operational"
	Personnel   Category = "Personnel"
	Logistics   Category = "Logistics"
	Marketing   Category = "Marketing"
	Utilities   Category = "Utilities"
	Rent        Category = "Rent"
	Other       Category = "Other"

	// PartnerWithdrawal and PartnerContribution are partner events, not operating costs.
	PartnerWithdrawal   Category = "Partner Withdrawal"
	PartnerContribution Category = "Partner Contribution"
)

// OperatingCategories lists categories accepted from users.
var OperatingCategories = []Category{Operational, Personnel, Logistics, Marketing, Utilities, Rent, Other}

// PaymentMethod describes how an expense was settled.
type PaymentMethod string

const (
	Cash         PaymentMethod = "Cash"
	BankTransfer PaymentMethod = "Bank Transfer"
	CreditCard   PaymentMethod = "Credit Card"
	Cheque       PaymentMethod = "Cheque"
)

var paymentMethods = []PaymentMethod{Cash, BankTransfer, CreditCard, Cheque}

func title(raw string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(raw), " "))
}

// NormalizeCategory maps free-form input such as "partner  withdrawal" onto a
// known category.
func NormalizeCategory(raw string) (Category, error) {
	normalized := Category(title(raw))
	if normalized.IsPartnerEvent() {
		return normalized, nil
	}
	for _, c := range OperatingCategories {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

// NormalizePaymentMethod maps free-form input onto a known method. Empty
// input defaults to Cash.
func NormalizePaymentMethod(raw string) (PaymentMethod, error) {
	if strings.TrimSpace(raw) == "" {
		return Cash, nil
	}
	normalized := PaymentMethod(title(raw))
	for _, m := range paymentMethods {
		if m == normalized {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
}

// IsPartnerEvent reports whether c records a partner withdrawal or contribution.
func (c Category) IsPartnerEvent() bool {
	return c == PartnerWithdrawal || c == PartnerContribution
}

// Expense is an immutable expense record.
type Expense struct {
	ID            string          `json:"id"`
	Unit          string          `json:"unit"`
	Date          time.Time       `json:"date"`
	Category      Category        `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Partner       string          `json:"partner,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// IsOperating reports whether the expense counts toward operating expenses.
func (e Expense) IsOperating() bool {
	return !e.Category.IsPartnerEvent()
}

// RecordInput describes a user-submitted operating expense.
type RecordInput struct {
	Unit          string
	Date          time.Time
	Category      string
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
}

// PartnerInput describes a withdrawal or contribution entry.
type PartnerInput struct {
	Unit        string
	Category    Category
	Partner     string
	Amount      decimal.Decimal
	Description string
}

// OperatingTotal sums operating expenses.
func OperatingTotal(list []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range list {
		if e.IsOperating() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// PartnerTotals sums partner-event expenses of one category by partner name.
func PartnerTotals(list []Expense, category Category) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range list {
		if e.Category != category || e.Partner == "" {
			continue
		}
		totals[e.Partner] = totals[e.Partner].Add(e.Amount)
	}
	return totals
}

var (
	ErrInvalidCategory      = fmt.Errorf("expenses: unknown category: %w", shared.ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("expenses: unknown payment method: %w", shared.ErrValidation)
	ErrDescriptionRequired  = fmt.Errorf("expenses: description required: %w", shared.ErrValidation)
	// ErrPartnerCategory rejects partner categories on the operating path.
	ErrPartnerCategory = fmt.Errorf("expenses: partner categories are recorded by withdrawals and investments: %w", shared.ErrValidation)
	ErrExpenseNotFound = fmt.Errorf("expenses: expense %w", shared.ErrNotFound)
)
