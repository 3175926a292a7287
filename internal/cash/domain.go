package cash

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Direction tells whether an adjustment adds to or removes from the balance.
type Direction string

const (
	// Credit adds to the balance.
	Credit Direction = "credit"
	// Debit removes from the balance.
	Debit Direction = "debit"
)

// MovementKind classifies why cash moved.
type MovementKind string

const (
	MovementOpening    MovementKind = "Opening"
	MovementPurchase   MovementKind = "Purchase"
	MovementSale       MovementKind = "Sale"
	MovementInvestment MovementKind = "Investment"
	MovementExpense    MovementKind = "Expense"
	MovementWithdrawal MovementKind = "Partner Withdrawal"
	MovementReset      MovementKind = "Reset"
)

// Balance is the cash position of one business unit.
type Balance struct {
	Unit      string          `json:"unit"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Movement records one successful credit or debit.
type Movement struct {
	ID           string          `json:"id"`
	Unit         string          `json:"unit"`
	Kind         MovementKind    `json:"kind"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Reference    string          `json:"reference,omitempty"`
	Description  string          `json:"description,omitempty"`
	At           time.Time       `json:"at"`
}

// Entry describes the business event behind an adjustment.
type Entry struct {
	Kind         MovementKind
	Reference    string
	Counterparty string
	Description  string
}

var (
	// ErrInsufficientFunds triggered when a debit exceeds the balance.
	ErrInsufficientFunds = fmt.Errorf("cash: %w", shared.ErrInsufficientFunds)
	// ErrUnitNotFound indicates no balance row exists for the unit.
	ErrUnitNotFound = fmt.Errorf("cash: business unit %w", shared.ErrNotFound)
	// ErrInvalidDirection indicates an unknown direction.
	ErrInvalidDirection = fmt.Errorf("cash: direction must be credit or debit: %w", shared.ErrValidation)
)

// BusinessUnit is a partition of the ledger.
type BusinessUnit struct {
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ErrUnitExists indicates a unit was registered twice.
var ErrUnitExists = fmt.Errorf("cash: business unit already registered: %w", shared.ErrConflict)
