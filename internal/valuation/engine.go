package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/shared"
)

// costPlaces is the precision reported for weighted average cost.
const costPlaces int32 = 4

// Snapshot is the history a report is computed from. An empty Unit means
// the snapshot spans every unit.
type Snapshot struct {
	Unit        string
	Inventory   []inventory.Transaction
	Expenses    []expenses.Expense
	LatestPrice decimal.Decimal
	HasPrice    bool
}

// Report holds every figure derived from a snapshot.
type Report struct {
	Unit              string          `json:"unit"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	PurchasedQty      decimal.Decimal `json:"purchased_qty"`
	SoldQty           decimal.Decimal `json:"sold_qty"`
	PurchaseAmount    decimal.Decimal `json:"purchase_amount"`
	SaleAmount        decimal.Decimal `json:"sale_amount"`
	WeightedAvgCost   decimal.Decimal `json:"weighted_avg_cost"`
	MarketPrice       decimal.Decimal `json:"market_price"`
	BookValue         decimal.Decimal `json:"book_value"`
	MarketValue       decimal.Decimal `json:"market_value"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	ProvisionalProfit decimal.Decimal `json:"provisional_profit"`
}

// Distributable is the larger of provisional and net profit, the base for
// partner entitlements.
func (r Report) Distributable() decimal.Decimal {
	return decimal.Max(r.ProvisionalProfit, r.NetProfit)
}

// CurrentStock is Σ purchased minus Σ sold quantity.
func CurrentStock(txs []inventory.Transaction) decimal.Decimal {
	return inventory.Summarize(txs).Stock()
}

// WeightedAvgCost divides purchase cost by purchased quantity. With no
// purchases it falls back to the given price, which callers set to the
// latest market price or zero.
func WeightedAvgCost(txs []inventory.Transaction, fallback decimal.Decimal) decimal.Decimal {
	totals := inventory.Summarize(txs)
	if !totals.PurchasedQty.IsPositive() {
		return fallback
	}
	return totals.PurchaseAmount.Div(totals.PurchasedQty)
}

// GrossProfit is Σ sales minus Σ purchases over the whole history.
func GrossProfit(txs []inventory.Transaction) decimal.Decimal {
	totals := inventory.Summarize(txs)
	return totals.SaleAmount.Sub(totals.PurchaseAmount)
}

// Evaluate computes a report from a snapshot.
func Evaluate(s Snapshot) Report {
	totals := inventory.Summarize(s.Inventory)
	stock := totals.Stock()

	price := decimal.Zero
	if s.HasPrice {
		price = s.LatestPrice
	}
	wac := WeightedAvgCost(s.Inventory, price)
	book := shared.RoundMoney(stock.Mul(wac))
	opex := expenses.OperatingTotal(s.Expenses)
	gross := totals.SaleAmount.Sub(totals.PurchaseAmount)
	net := gross.Sub(opex)

	return Report{
		Unit:              s.Unit,
		CurrentStock:      stock,
		PurchasedQty:      totals.PurchasedQty,
		SoldQty:           totals.SoldQty,
		PurchaseAmount:    totals.PurchaseAmount,
		SaleAmount:        totals.SaleAmount,
		WeightedAvgCost:   wac.Round(costPlaces),
		MarketPrice:       price,
		BookValue:         book,
		MarketValue:       shared.RoundMoney(stock.Mul(price)),
		GrossProfit:       gross,
		OperatingExpenses: opex,
		NetProfit:         net,
		ProvisionalProfit: decimal.Max(decimal.Zero, book.Sub(opex)),
	}
}
