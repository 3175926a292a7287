// Package store defines the persistence collaborator of the ledger.
package store

import (
	"context"
	"time"

	"github.com/newdim001/biz-pro/internal/auth"
	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/investments"
	"github.com/newdim001/biz-pro/internal/market"
	"github.com/newdim001/biz-pro/internal/partners"
	"github.com/newdim001/biz-pro/internal/shared"
)

// Reader exposes ledger reads. An empty unit lists every unit.
type Reader interface {
	ListUnits(ctx context.Context) ([]cash.BusinessUnit, error)
	GetBalance(ctx context.Context, unit string) (cash.Balance, error)
	ListBalances(ctx context.Context) ([]cash.Balance, error)
	ListMovements(ctx context.Context, unit string) ([]cash.Movement, error)
	ListInventory(ctx context.Context, unit string) ([]inventory.Transaction, error)
	ListExpenses(ctx context.Context, unit string) ([]expenses.Expense, error)
	ListInvestments(ctx context.Context, unit string) ([]investments.Investment, error)
	ListPartners(ctx context.Context, unit string) ([]partners.Partner, error)
	LatestPrice(ctx context.Context) (market.Price, error)
	ListPrices(ctx context.Context, limit int) ([]market.Price, error)
}

// Tx is a store transaction. Writes become visible on commit only.
type Tx interface {
	Reader
	cash.Port
	inventory.Port
	expenses.Port
	investments.Port
	partners.Port
	market.Port
	shared.AuditRecorder

	InsertUnit(ctx context.Context, unit cash.BusinessUnit) error
	// ClaimIdempotencyKey fails with shared.ErrDuplicateSubmission when key was claimed before.
	ClaimIdempotencyKey(ctx context.Context, key string) error
	// ResetLedger deletes every ledger row except units and users and zeroes balances.
	ResetLedger(ctx context.Context) error
}

// Store is the persistence collaborator.
type Store interface {
	Reader
	auth.Repository
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error)
	ListAudit(ctx context.Context, limit int) ([]shared.AuditLog, error)
	Ping(ctx context.Context) error
	Close()
}
