package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(kind inventory.TransactionType, qty, price string) inventory.Transaction {
	q, p := dec(qty), dec(price)
	return inventory.Transaction{Unit: "Unit A", Type: kind, QuantityKg: q, UnitPrice: p, TotalAmount: inventory.TotalAmount(q, p)}
}

func TestEvaluateSimpleProfitPolicy(t *testing.T) {
	report := Evaluate(Snapshot{
		Unit: "Unit A",
		Inventory: []inventory.Transaction{
			tx(inventory.Purchase, "100", "20"),
			tx(inventory.Sale, "40", "30"),
		},
		LatestPrice: dec("25"),
		HasPrice:    true,
	})

	require.Equal(t, "60", report.CurrentStock.String())
	require.Equal(t, "20", report.WeightedAvgCost.String())
	require.Equal(t, "1200.00", report.BookValue.StringFixed(2))
	require.Equal(t, "1500.00", report.MarketValue.StringFixed(2))
	require.Equal(t, "-800.00", report.GrossProfit.StringFixed(2))
	require.Equal(t, "-800.00", report.NetProfit.StringFixed(2))
	require.Equal(t, "1200.00", report.ProvisionalProfit.StringFixed(2))
	require.Equal(t, "1200.00", report.Distributable().StringFixed(2))
}

func TestEvaluateExcludesPartnerExpenses(t *testing.T) {
	report := Evaluate(Snapshot{
		Inventory: []inventory.Transaction{
			tx(inventory.Purchase, "10", "10"),
			tx(inventory.Purchase, "30", "14"),
			tx(inventory.Sale, "20", "30"),
		},
		Expenses: []expenses.Expense{
			{Category: expenses.Rent, Amount: dec("150")},
			{Category: expenses.PartnerWithdrawal, Partner: "Ali", Amount: dec("999")},
			{Category: expenses.PartnerContribution, Partner: "Ali", Amount: dec("50")},
		},
	})

	require.Equal(t, "13", report.WeightedAvgCost.String())
	require.Equal(t, "260.00", report.BookValue.StringFixed(2))
	require.Equal(t, "150", report.OperatingExpenses.String())
	require.Equal(t, "80.00", report.GrossProfit.StringFixed(2))
	require.Equal(t, "-70.00", report.NetProfit.StringFixed(2))
	require.Equal(t, "110.00", report.ProvisionalProfit.StringFixed(2))
	require.True(t, report.MarketValue.IsZero())
}

func TestWeightedAvgCostFallback(t *testing.T) {
	require.True(t, WeightedAvgCost(nil, decimal.Zero).IsZero())
	require.Equal(t, "50", WeightedAvgCost(nil, dec("50")).String())

	report := Evaluate(Snapshot{HasPrice: true, LatestPrice: dec("50")})
	require.Equal(t, "50", report.WeightedAvgCost.String())
	require.True(t, report.CurrentStock.IsZero())
	require.True(t, report.ProvisionalProfit.IsZero())
}

func TestProvisionalProfitNeverNegative(t *testing.T) {
	report := Evaluate(Snapshot{
		Inventory: []inventory.Transaction{tx(inventory.Purchase, "1", "10")},
		Expenses:  []expenses.Expense{{Category: expenses.Marketing, Amount: dec("500")}},
	})
	require.True(t, report.ProvisionalProfit.IsZero())
	require.Equal(t, "-510.00", report.NetProfit.StringFixed(2))
	require.True(t, report.Distributable().IsZero())
}
