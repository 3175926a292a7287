package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/shared"
)

// TransactionType enumerates supported inventory movements.
type TransactionType string

const (
	// Purchase represents an inbound movement paid from cash.
	Purchase TransactionType = "Purchase"
	// Sale represents an outbound movement paid into cash.
	Sale TransactionType = "Sale"
)

// Valid reports whether t is a known type.
func (t TransactionType) Valid() bool {
	return t == Purchase || t == Sale
}

// Transaction is an immutable inventory record.
type Transaction struct {
	ID          string          `json:"id"`
	Unit        string          `json:"unit"`
	Date        time.Time       `json:"date"`
	Type        TransactionType `json:"type"`
	QuantityKg  decimal.Decimal `json:"quantity_kg"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Remarks     string          `json:"remarks,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RecordInput describes a purchase or sale to append.
type RecordInput struct {
	Unit       string
	Type       TransactionType
	Date       time.Time
	QuantityKg decimal.Decimal
	UnitPrice  decimal.Decimal
	Remarks    string
}

// Totals aggregates a transaction history.
type Totals struct {
	PurchasedQty   decimal.Decimal `json:"purchased_qty"`
	SoldQty        decimal.Decimal `json:"sold_qty"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	SaleAmount     decimal.Decimal `json:"sale_amount"`
	Purchases      int             `json:"purchases"`
	Sales          int             `json:"sales"`
}

// Stock is purchased minus sold quantity.
func (t Totals) Stock() decimal.Decimal {
	return t.PurchasedQty.Sub(t.SoldQty)
}

// Summarize folds a history into Totals.
func Summarize(txs []Transaction) Totals {
	totals := Totals{
		PurchasedQty:   decimal.Zero,
		SoldQty:        decimal.Zero,
		PurchaseAmount: decimal.Zero,
		SaleAmount:     decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Type {
		case Purchase:
			totals.PurchasedQty = totals.PurchasedQty.Add(tx.QuantityKg)
			totals.PurchaseAmount = totals.PurchaseAmount.Add(tx.TotalAmount)
			totals.Purchases++
		case Sale:
			totals.SoldQty = totals.SoldQty.Add(tx.QuantityKg)
			totals.SaleAmount = totals.SaleAmount.Add(tx.TotalAmount)
			totals.Sales++
		}
	}
	return totals
}

// TotalAmount is quantity times price rounded to cents.
func TotalAmount(quantity, price decimal.Decimal) decimal.Decimal {
	return shared.RoundMoney(quantity.Mul(price))
}

var (
	// ErrNegativeStock triggered when a sale would result in negative stock.
	ErrNegativeStock = fmt.Errorf("inventory: negative stock not allowed: %w", shared.ErrValidation)
	// ErrInvalidType indicates an unknown transaction type.
	ErrInvalidType = fmt.Errorf("inventory: type must be Purchase or Sale: %w", shared.ErrValidation)
	// ErrTransactionNotFound indicates a missing record on compensating delete.
	ErrTransactionNotFound = fmt.Errorf("inventory: transaction %w", shared.ErrNotFound)
)
