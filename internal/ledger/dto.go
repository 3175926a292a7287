package ledger

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/investments"
	"github.com/newdim001/biz-pro/internal/shared"
)

// IdempotencyHeader carries a client-chosen key that makes a write safe to retry.
const IdempotencyHeader = "Idempotency-Key"

const dateLayout = "2006-01-02"

type tradeRequest struct {
	Date       string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Remarks    string          `json:"remarks" validate:"max=500"`
}

type investmentRequest struct {
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Amount      decimal.Decimal `json:"amount"`
	Investor    string          `json:"investor" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=500"`
	Distribute  *bool           `json:"distribute"`
}

type expenseRequest struct {
	Date          string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Category      string          `json:"category" validate:"required,max=60"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"required,max=500"`
	PaymentMethod string          `json:"payment_method" validate:"max=40"`
}

type withdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

type partnerRequest struct {
	Name     string          `json:"name" validate:"required,max=120"`
	SharePct decimal.Decimal `json:"share_pct"`
}

type shareRequest struct {
	SharePct decimal.Decimal `json:"share_pct"`
}

type unitRequest struct {
	Name           string           `json:"name" validate:"required,max=100"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type resetRequest struct {
	Confirmation string `json:"confirmation" validate:"required"`
}

type listResponse[T any] struct {
	Data       []T               `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

type exportResponse struct {
	Unit        string                   `json:"unit"`
	GeneratedAt time.Time                `json:"generated_at"`
	Summary     UnitSummary              `json:"summary"`
	Movements   []cash.Movement          `json:"movements"`
	Inventory   []inventory.Transaction  `json:"inventory"`
	Expenses    []expenses.Expense       `json:"expenses"`
	Investments []investments.Investment `json:"investments"`
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", shared.ErrValidation)
	}
	return t, nil
}

func page(r *http.Request) (int, int) {
	p, _ := strconv.Atoi(r.URL.Query().Get("page"))
	per, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if per > 200 {
		per = 200
	}
	return p, per
}

func paginate[T any](r *http.Request, items []T) listResponse[T] {
	p, per := page(r)
	data, meta := shared.Paginate(items, p, per)
	return listResponse[T]{Data: data, Pagination: meta}
}
