package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency amounts carry two decimals, quantities three.
const (
	MoneyPlaces    int32 = 2
	QuantityPlaces int32 = 3
)

var (
	// MinAmount is the smallest currency amount the ledger accepts.
	MinAmount = decimal.New(1, -MoneyPlaces)
	// Hundred is used for percentage arithmetic.
	Hundred = decimal.NewFromInt(100)
)

// ErrBelowMinimum rejects amounts in (0, 0.01).
var ErrBelowMinimum = fmt.Errorf("amount must be at least %s: %w", MinAmount.StringFixed(MoneyPlaces), ErrValidation)

// RoundMoney rounds half away from zero to two decimals.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Amount validates a currency amount and returns it rounded to cents.
func Amount(field string, d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive: %w", field, ErrValidation)
	}
	if d.LessThan(MinAmount) {
		return decimal.Zero, fmt.Errorf("%s: %w", field, ErrBelowMinimum)
	}
	return RoundMoney(d), nil
}

// Quantity validates a positive quantity with at most three decimals.
func Quantity(field string, d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive: %w", field, ErrValidation)
	}
	if !d.Equal(d.Truncate(QuantityPlaces)) {
		return decimal.Zero, fmt.Errorf("%s allows at most %d decimals: %w", field, QuantityPlaces, ErrValidation)
	}
	return d, nil
}

// Price validates a positive unit price. Sub-cent prices are rejected like amounts.
func Price(field string, d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive: %w", field, ErrValidation)
	}
	if d.LessThan(MinAmount) {
		return decimal.Zero, fmt.Errorf("%s: %w", field, ErrBelowMinimum)
	}
	return d, nil
}

// FloorCents maps sub-cent noise to zero and clamps negatives.
func FloorCents(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(MinAmount) {
		return decimal.Zero
	}
	return d
}
