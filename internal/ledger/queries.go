package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/investments"
	"github.com/newdim001/biz-pro/internal/market"
	"github.com/newdim001/biz-pro/internal/partners"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/valuation"
)

// InventoryValuation reports stock and both valuations of a unit.
type InventoryValuation struct {
	Unit            string          `json:"unit"`
	Stock           decimal.Decimal `json:"stock_kg"`
	WeightedAvgCost decimal.Decimal `json:"weighted_avg_cost"`
	MarketPrice     decimal.Decimal `json:"market_price"`
	BookValue       decimal.Decimal `json:"book_value"`
	MarketValue     decimal.Decimal `json:"market_value"`
}

// ProfitLoss is the profit view of a unit.
type ProfitLoss struct {
	Unit              string          `json:"unit"`
	Revenue           decimal.Decimal `json:"revenue"`
	Purchases         decimal.Decimal `json:"purchases"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	ProvisionalProfit decimal.Decimal `json:"provisional_profit"`
	Distributable     decimal.Decimal `json:"distributable"`
}

// UnitSummary is the dashboard row of one unit.
type UnitSummary struct {
	Unit             string            `json:"unit"`
	Balance          decimal.Decimal   `json:"balance"`
	Report           valuation.Report  `json:"report"`
	Distributable    decimal.Decimal   `json:"distributable"`
	TotalInvestments decimal.Decimal   `json:"total_investments"`
	Partners         []partners.Profit `json:"partners"`
}

// SystemSummary aggregates every unit.
type SystemSummary struct {
	Units          []UnitSummary   `json:"units"`
	TotalCash      decimal.Decimal `json:"total_cash"`
	TotalStock     decimal.Decimal `json:"total_stock_kg"`
	TotalBookValue decimal.Decimal `json:"total_book_value"`
	TotalNetProfit decimal.Decimal `json:"total_net_profit"`
	MarketPrice    decimal.Decimal `json:"market_price"`
	HasMarketPrice bool            `json:"has_market_price"`
}

// Units lists registered business units.
func (s *Service) Units(ctx context.Context) ([]cash.BusinessUnit, error) {
	return s.store.ListUnits(ctx)
}

// Balance returns the cash balance of unit.
func (s *Service) Balance(ctx context.Context, unit string) (cash.Balance, error) {
	return s.store.GetBalance(ctx, unit)
}

// Balances returns every unit's cash balance.
func (s *Service) Balances(ctx context.Context) ([]cash.Balance, error) {
	return s.store.ListBalances(ctx)
}

// Report returns the valuation report of unit, "" for all units. A unit
// that was never registered is ErrNotFound.
func (s *Service) Report(ctx context.Context, unit string) (valuation.Report, error) {
	if unit != "" {
		if _, err := s.store.GetBalance(ctx, unit); err != nil {
			return valuation.Report{}, err
		}
	}
	return s.valuation.Report(ctx, unit)
}

// CurrentStock returns Σ purchased − Σ sold for unit.
func (s *Service) CurrentStock(ctx context.Context, unit string) (decimal.Decimal, error) {
	report, err := s.Report(ctx, unit)
	if err != nil {
		return decimal.Zero, err
	}
	return report.CurrentStock, nil
}

// InventoryValue returns stock valued at weighted average cost and market.
func (s *Service) InventoryValue(ctx context.Context, unit string) (InventoryValuation, error) {
	report, err := s.Report(ctx, unit)
	if err != nil {
		return InventoryValuation{}, err
	}
	return InventoryValuation{
		Unit:            unit,
		Stock:           report.CurrentStock,
		WeightedAvgCost: report.WeightedAvgCost,
		MarketPrice:     report.MarketPrice,
		BookValue:       report.BookValue,
		MarketValue:     report.MarketValue,
	}, nil
}

// ProfitLoss returns the profit figures of unit.
func (s *Service) ProfitLoss(ctx context.Context, unit string) (ProfitLoss, error) {
	report, err := s.Report(ctx, unit)
	if err != nil {
		return ProfitLoss{}, err
	}
	return ProfitLoss{
		Unit:              unit,
		Revenue:           report.SaleAmount,
		Purchases:         report.PurchaseAmount,
		GrossProfit:       report.GrossProfit,
		OperatingExpenses: report.OperatingExpenses,
		NetProfit:         report.NetProfit,
		ProvisionalProfit: report.ProvisionalProfit,
		Distributable:     report.Distributable(),
	}, nil
}

// PartnerProfits returns the profit-sharing view of unit.
func (s *Service) PartnerProfits(ctx context.Context, unit string) ([]partners.Profit, error) {
	if unit == "" {
		return nil, ErrUnitRequired
	}
	report, err := s.Report(ctx, unit)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListPartners(ctx, unit)
	if err != nil {
		return nil, err
	}
	return partners.Profits(list, report.Distributable()), nil
}

// UnitSummary assembles the dashboard view of one unit.
func (s *Service) UnitSummary(ctx context.Context, unit string) (UnitSummary, error) {
	balance, err := s.store.GetBalance(ctx, unit)
	if err != nil {
		return UnitSummary{}, err
	}
	report, err := s.Report(ctx, unit)
	if err != nil {
		return UnitSummary{}, err
	}
	list, err := s.store.ListPartners(ctx, unit)
	if err != nil {
		return UnitSummary{}, err
	}
	invs, err := s.store.ListInvestments(ctx, unit)
	if err != nil {
		return UnitSummary{}, err
	}
	return UnitSummary{
		Unit:             unit,
		Balance:          balance.Balance,
		Report:           report,
		Distributable:    report.Distributable(),
		TotalInvestments: investments.Total(invs),
		Partners:         partners.Profits(list, report.Distributable()),
	}, nil
}

// SystemSummary aggregates every registered unit.
func (s *Service) SystemSummary(ctx context.Context) (SystemSummary, error) {
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return SystemSummary{}, err
	}
	out := SystemSummary{
		Units:          make([]UnitSummary, 0, len(units)),
		TotalCash:      decimal.Zero,
		TotalStock:     decimal.Zero,
		TotalBookValue: decimal.Zero,
		TotalNetProfit: decimal.Zero,
	}
	for _, name := range sortedUnits(units) {
		summary, err := s.UnitSummary(ctx, name)
		if err != nil {
			return SystemSummary{}, err
		}
		out.Units = append(out.Units, summary)
		out.TotalCash = out.TotalCash.Add(summary.Balance)
		out.TotalStock = out.TotalStock.Add(summary.Report.CurrentStock)
		out.TotalBookValue = out.TotalBookValue.Add(summary.Report.BookValue)
		out.TotalNetProfit = out.TotalNetProfit.Add(summary.Report.NetProfit)
	}
	latest, err := s.store.LatestPrice(ctx)
	switch {
	case err == nil:
		out.MarketPrice, out.HasMarketPrice = latest.Price, true
	case errors.Is(err, market.ErrNoPrice):
	default:
		return SystemSummary{}, err
	}
	return out, nil
}

// Movements lists cash movements of unit, "" for all.
func (s *Service) Movements(ctx context.Context, unit string) ([]cash.Movement, error) {
	return s.store.ListMovements(ctx, unit)
}

// Inventory lists inventory transactions of unit, "" for all.
func (s *Service) Inventory(ctx context.Context, unit string) ([]inventory.Transaction, error) {
	return s.store.ListInventory(ctx, unit)
}

// Expenses lists expenses of unit, "" for all.
func (s *Service) Expenses(ctx context.Context, unit string) ([]expenses.Expense, error) {
	return s.store.ListExpenses(ctx, unit)
}

// Investments lists investments of unit, "" for all.
func (s *Service) Investments(ctx context.Context, unit string) ([]investments.Investment, error) {
	return s.store.ListInvestments(ctx, unit)
}

// Partners lists partners of unit, "" for all.
func (s *Service) Partners(ctx context.Context, unit string) ([]partners.Partner, error) {
	return s.store.ListPartners(ctx, unit)
}

// Prices returns the most recent market prices, newest first.
func (s *Service) Prices(ctx context.Context, limit int) ([]market.Price, error) {
	return s.store.ListPrices(ctx, limit)
}

// Audit returns the most recent audit entries.
func (s *Service) Audit(ctx context.Context, limit int) ([]shared.AuditLog, error) {
	return s.store.ListAudit(ctx, limit)
}
