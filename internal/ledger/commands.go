package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/investments"
	"github.com/newdim001/biz-pro/internal/market"
	"github.com/newdim001/biz-pro/internal/partners"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
	"github.com/newdim001/biz-pro/internal/valuation"
)

// Command names double as audit actions, metric labels and idempotency scopes.
const (
	OpRegisterUnit  = "unit.register"
	OpPurchase      = "inventory.purchase"
	OpSale          = "inventory.sale"
	OpInvestment    = "investment.record"
	OpExpense       = "expense.record"
	OpWithdraw      = "partner.withdraw"
	OpPartnerAdd    = "partner.add"
	OpPartnerUpdate = "partner.update"
	OpPartnerRemove = "partner.remove"
	OpPrice         = "market.price"
	OpReset         = "admin.reset"
	OpSeed          = "admin.seed"
)

// TradeInput describes a purchase or sale.
type TradeInput struct {
	Unit           string
	Date           time.Time
	QuantityKg     decimal.Decimal
	UnitPrice      decimal.Decimal
	Remarks        string
	IdempotencyKey string
}

// TradeResult is the outcome of a purchase or sale.
type TradeResult struct {
	Transaction inventory.Transaction `json:"transaction"`
	Movement    cash.Movement         `json:"movement"`
	Stock       decimal.Decimal       `json:"stock"`
}

// RecordPurchase appends a purchase and pays for it from the unit's cash.
func (s *Service) RecordPurchase(ctx context.Context, input TradeInput) (TradeResult, error) {
	return s.trade(ctx, OpPurchase, inventory.Purchase, input)
}

// RecordSale appends a sale and credits the proceeds.
func (s *Service) RecordSale(ctx context.Context, input TradeInput) (TradeResult, error) {
	return s.trade(ctx, OpSale, inventory.Sale, input)
}

func (s *Service) trade(ctx context.Context, op string, kind inventory.TransactionType, input TradeInput) (TradeResult, error) {
	var result TradeResult
	err := s.command(ctx, op, input.Unit, input.IdempotencyKey, func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		if _, err := tx.GetBalance(ctx, input.Unit); err != nil {
			return shared.AuditLog{}, err
		}
		rec, err := s.inventory.Record(ctx, tx, inventory.RecordInput{
			Unit:       input.Unit,
			Type:       kind,
			Date:       input.Date,
			QuantityKg: input.QuantityKg,
			UnitPrice:  input.UnitPrice,
			Remarks:    input.Remarks,
		})
		if err != nil {
			return shared.AuditLog{}, err
		}

		entry := cash.Entry{Reference: rec.ID, Description: rec.Remarks}
		var movement cash.Movement
		if kind == inventory.Purchase {
			entry.Kind, entry.Counterparty = cash.MovementPurchase, "supplier"
			movement, err = s.cash.Debit(ctx, tx, input.Unit, rec.TotalAmount, entry)
		} else {
			entry.Kind, entry.Counterparty = cash.MovementSale, "customer"
			movement, err = s.cash.Credit(ctx, tx, input.Unit, rec.TotalAmount, entry)
		}
		if err != nil {
			if errors.Is(err, cash.ErrInsufficientFunds) {
				if rbErr := s.inventory.Rollback(ctx, tx, rec.ID); rbErr != nil {
					return shared.AuditLog{}, errors.Join(err, rbErr)
				}
			}
			return shared.AuditLog{}, err
		}

		history, err := tx.ListInventory(ctx, input.Unit)
		if err != nil {
			return shared.AuditLog{}, err
		}
		result = TradeResult{Transaction: rec, Movement: movement, Stock: inventory.Summarize(history).Stock()}
		return shared.AuditLog{
			Entity:   "inventory_transaction",
			EntityID: rec.ID,
			Meta: map[string]any{
				"unit":         input.Unit,
				"quantity_kg":  rec.QuantityKg.String(),
				"total_amount": money(rec.TotalAmount),
			},
		}, nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	return result, nil
}

// InvestmentInput describes capital injected into a unit. Distribute
// overrides the configured distribution policy when set.
type InvestmentInput struct {
	Unit           string
	Date           time.Time
	Amount         decimal.Decimal
	Investor       string
	Description    string
	Distribute     *bool
	IdempotencyKey string
}

// InvestmentResult is the outcome of RecordInvestment.
type InvestmentResult struct {
	Investment  investments.Investment   `json:"investment"`
	Movement    cash.Movement            `json:"movement"`
	Allocations []investments.Allocation `json:"allocations,omitempty"`
}

// RecordInvestment appends an investment, credits cash and optionally
// distributes the amount across partners pro rata.
func (s *Service) RecordInvestment(ctx context.Context, input InvestmentInput) (InvestmentResult, error) {
	distribute := s.cfg.DistributeInvestments
	if input.Distribute != nil {
		distribute = *input.Distribute
	}
	var result InvestmentResult
	err := s.command(ctx, OpInvestment, input.Unit, input.IdempotencyKey, func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		inv, err := s.investments.Record(ctx, tx, investments.RecordInput{
			Unit:        input.Unit,
			Date:        input.Date,
			Amount:      input.Amount,
			Investor:    input.Investor,
			Description: input.Description,
		})
		if err != nil {
			return shared.AuditLog{}, err
		}
		movement, err := s.cash.Credit(ctx, tx, input.Unit, inv.Amount, cash.Entry{
			Kind:         cash.MovementInvestment,
			Reference:    inv.ID,
			Counterparty: inv.Investor,
			Description:  inv.Description,
		})
		if err != nil {
			return shared.AuditLog{}, err
		}
		result = InvestmentResult{Investment: inv, Movement: movement}

		if distribute {
			allocations, err := s.distribute(ctx, tx, inv)
			if err != nil {
				return shared.AuditLog{}, err
			}
			result.Allocations = allocations
		}
		return shared.AuditLog{
			Entity:   "investment",
			EntityID: inv.ID,
			Meta: map[string]any{
				"unit":        input.Unit,
				"investor":    inv.Investor,
				"amount":      money(inv.Amount),
				"distributed": len(result.Allocations) > 0,
			},
		}, nil
	})
	if err != nil {
		return InvestmentResult{}, err
	}
	return result, nil
}

func (s *Service) distribute(ctx context.Context, tx store.Tx, inv investments.Investment) ([]investments.Allocation, error) {
	list, err := tx.PartnersForUpdate(ctx, inv.Unit)
	if err != nil {
		return nil, err
	}
	stakes := make([]investments.Stake, 0, len(list))
	for _, p := range list {
		stakes = append(stakes, investments.Stake{Partner: p.Name, SharePct: p.SharePct})
	}
	allocations := investments.Allocate(inv.Amount, stakes)
	portions := make(map[string]decimal.Decimal, len(allocations))
	for _, a := range allocations {
		if !a.Amount.IsPositive() {
			continue
		}
		if _, err := s.expenses.RecordPartner(ctx, tx, expenses.PartnerInput{
			Unit:        inv.Unit,
			Category:    expenses.PartnerContribution,
			Partner:     a.Partner,
			Amount:      a.Amount,
			Description: fmt.Sprintf("%s - %s (investment %s)", expenses.PartnerContribution, a.Partner, inv.Investor),
		}); err != nil {
			return nil, err
		}
		portions[a.Partner] = a.Amount
	}
	if _, err := s.partners.Contribute(ctx, tx, inv.Unit, portions); err != nil {
		return nil, err
	}
	return allocations, nil
}

// ExpenseInput describes an operating expense.
type ExpenseInput struct {
	Unit           string
	Date           time.Time
	Category       string
	Amount         decimal.Decimal
	Description    string
	PaymentMethod  string
	IdempotencyKey string
}

// ExpenseResult is the outcome of RecordExpense.
type ExpenseResult struct {
	Expense  expenses.Expense `json:"expense"`
	Movement cash.Movement    `json:"movement"`
}

// RecordExpense appends an operating expense and pays it from cash.
func (s *Service) RecordExpense(ctx context.Context, input ExpenseInput) (ExpenseResult, error) {
	var result ExpenseResult
	err := s.command(ctx, OpExpense, input.Unit, input.IdempotencyKey, func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		exp, err := s.expenses.Record(ctx, tx, expenses.RecordInput{
			Unit:          input.Unit,
			Date:          input.Date,
			Category:      input.Category,
			Amount:        input.Amount,
			Description:   input.Description,
			PaymentMethod: input.PaymentMethod,
		})
		if err != nil {
			return shared.AuditLog{}, err
		}
		movement, err := s.cash.Debit(ctx, tx, input.Unit, exp.Amount, cash.Entry{
			Kind:         cash.MovementExpense,
			Reference:    exp.ID,
			Counterparty: string(exp.Category),
			Description:  exp.Description,
		})
		if err != nil {
			if errors.Is(err, cash.ErrInsufficientFunds) {
				if rbErr := s.expenses.Rollback(ctx, tx, exp.ID); rbErr != nil {
					return shared.AuditLog{}, errors.Join(err, rbErr)
				}
			}
			return shared.AuditLog{}, err
		}
		result = ExpenseResult{Expense: exp, Movement: movement}
		return shared.AuditLog{
			Entity:   "expense",
			EntityID: exp.ID,
			Meta:     map[string]any{"unit": input.Unit, "category": string(exp.Category), "amount": money(exp.Amount)},
		}, nil
	})
	if err != nil {
		return ExpenseResult{}, err
	}
	return result, nil
}

// WithdrawalInput describes a partner drawing profit.
type WithdrawalInput struct {
	Unit           string
	Partner        string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// WithdrawalResult is the outcome of Withdraw.
type WithdrawalResult struct {
	Profit   partners.Profit  `json:"profit"`
	Expense  expenses.Expense `json:"expense"`
	Movement cash.Movement    `json:"movement"`
}

// Withdraw pays a partner out of the unit's cash, bounded by both the
// partner's available entitlement and the cash balance.
func (s *Service) Withdraw(ctx context.Context, input WithdrawalInput) (WithdrawalResult, error) {
	var result WithdrawalResult
	err := s.command(ctx, OpWithdraw, input.Unit, input.IdempotencyKey, func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		snap, err := valuation.LoadSnapshot(ctx, tx, input.Unit)
		if err != nil {
			return shared.AuditLog{}, err
		}
		distributable := valuation.Evaluate(snap).Distributable()

		partner, err := s.partners.Withdraw(ctx, tx, input.Unit, input.Partner, input.Amount, distributable)
		if err != nil {
			return shared.AuditLog{}, err
		}
		amount := shared.RoundMoney(input.Amount)
		exp, err := s.expenses.RecordPartner(ctx, tx, expenses.PartnerInput{
			Unit:        input.Unit,
			Category:    expenses.PartnerWithdrawal,
			Partner:     partner.Name,
			Amount:      amount,
			Description: input.Description,
		})
		if err != nil {
			return shared.AuditLog{}, err
		}
		movement, err := s.cash.Debit(ctx, tx, input.Unit, amount, cash.Entry{
			Kind:         cash.MovementWithdrawal,
			Reference:    exp.ID,
			Counterparty: partner.Name,
			Description:  exp.Description,
		})
		if err != nil {
			return shared.AuditLog{}, err
		}
		result = WithdrawalResult{Profit: partners.ProfitFor(partner, distributable), Expense: exp, Movement: movement}
		return shared.AuditLog{
			Entity:   "partner",
			EntityID: input.Unit + "/" + partner.Name,
			Meta:     map[string]any{"amount": money(amount), "distributable": money(distributable)},
		}, nil
	})
	if err != nil {
		return WithdrawalResult{}, err
	}
	return result, nil
}

// RegisterUnit creates a unit with its opening balance. A nil opening uses
// the configured default.
func (s *Service) RegisterUnit(ctx context.Context, name string, opening *decimal.Decimal) (cash.BusinessUnit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return cash.BusinessUnit{}, fmt.Errorf("ledger: unit name required: %w", shared.ErrValidation)
	}
	amount := s.cfg.OpeningBalance
	if opening != nil {
		amount = shared.RoundMoney(*opening)
	}
	if amount.IsNegative() {
		return cash.BusinessUnit{}, fmt.Errorf("ledger: opening balance must not be negative: %w", shared.ErrValidation)
	}
	unit := cash.BusinessUnit{Name: name, OpeningBalance: amount, CreatedAt: time.Now().UTC()}
	err := s.command(ctx, OpRegisterUnit, name, "", func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		if err := s.openUnit(ctx, tx, unit, cash.MovementOpening); err != nil {
			return shared.AuditLog{}, err
		}
		return shared.AuditLog{Entity: "business_unit", EntityID: name, Meta: map[string]any{"opening_balance": money(amount)}}, nil
	})
	if err != nil {
		return cash.BusinessUnit{}, err
	}
	return unit, nil
}

func (s *Service) openUnit(ctx context.Context, tx store.Tx, unit cash.BusinessUnit, kind cash.MovementKind) error {
	if err := tx.InsertUnit(ctx, unit); err != nil {
		return err
	}
	return s.fund(ctx, tx, unit.Name, unit.OpeningBalance, kind)
}

func (s *Service) fund(ctx context.Context, tx store.Tx, unit string, amount decimal.Decimal, kind cash.MovementKind) error {
	if !amount.IsPositive() {
		return nil
	}
	_, err := s.cash.Credit(ctx, tx, unit, amount, cash.Entry{Kind: kind, Counterparty: "opening balance"})
	return err
}

// AddPartner registers a partner in unit.
func (s *Service) AddPartner(ctx context.Context, unit, name string, share decimal.Decimal) (partners.Partner, error) {
	var partner partners.Partner
	err := s.command(ctx, OpPartnerAdd, unit, "", func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		if _, err := tx.GetBalance(ctx, unit); err != nil {
			return shared.AuditLog{}, err
		}
		var err error
		partner, err = s.partners.Add(ctx, tx, unit, name, share)
		if err != nil {
			return shared.AuditLog{}, err
		}
		return shared.AuditLog{Entity: "partner", EntityID: unit + "/" + partner.Name, Meta: map[string]any{"share_pct": share.String()}}, nil
	})
	if err != nil {
		return partners.Partner{}, err
	}
	return partner, nil
}

// UpdatePartnerShare changes a partner's share.
func (s *Service) UpdatePartnerShare(ctx context.Context, unit, name string, share decimal.Decimal) (partners.Partner, error) {
	var partner partners.Partner
	err := s.command(ctx, OpPartnerUpdate, unit, "", func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		var err error
		partner, err = s.partners.UpdateShare(ctx, tx, unit, name, share)
		if err != nil {
			return shared.AuditLog{}, err
		}
		return shared.AuditLog{Entity: "partner", EntityID: unit + "/" + partner.Name, Meta: map[string]any{"share_pct": share.String()}}, nil
	})
	if err != nil {
		return partners.Partner{}, err
	}
	return partner, nil
}

// RemovePartner deletes a partner. Its expense trail is kept. With
// redistribute set the freed share is split equally among the partners left.
func (s *Service) RemovePartner(ctx context.Context, unit, name string, redistribute bool) (partners.Removal, error) {
	var removal partners.Removal
	err := s.command(ctx, OpPartnerRemove, unit, "", func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		var err error
		removal, err = s.partners.Remove(ctx, tx, unit, name, redistribute)
		if err != nil {
			return shared.AuditLog{}, err
		}
		return shared.AuditLog{
			Entity:   "partner",
			EntityID: unit + "/" + removal.Partner.Name,
			Meta: map[string]any{
				"freed_share_pct": removal.FreedShare.String(),
				"redistributed":   len(removal.Redistributed),
			},
		}, nil
	})
	if err != nil {
		return partners.Removal{}, err
	}
	return removal, nil
}

// RecordPrice appends a market price, which becomes the current one.
func (s *Service) RecordPrice(ctx context.Context, price decimal.Decimal) (market.Price, error) {
	var entry market.Price
	start := time.Now()
	err := s.transact(ctx, OpPrice, "", func(ctx context.Context, tx store.Tx) (shared.AuditLog, error) {
		var err error
		entry, err = s.market.Record(ctx, tx, price)
		if err != nil {
			return shared.AuditLog{}, err
		}
		return shared.AuditLog{Entity: "market_price", EntityID: entry.ID, Meta: map[string]any{"price": entry.Price.String()}}, nil
	})
	s.observe(OpPrice, err, start)
	if err != nil {
		return market.Price{}, err
	}
	return entry, nil
}

func sortedUnits(units []cash.BusinessUnit) []string {
	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.Name)
	}
	sort.Strings(names)
	return names
}
