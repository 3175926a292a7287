// Package ledger orchestrates the cash, inventory, expense, investment and
// partner ledgers into atomic business commands.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/investments"
	"github.com/newdim001/biz-pro/internal/market"
	"github.com/newdim001/biz-pro/internal/partners"
	"github.com/newdim001/biz-pro/internal/platform/lock"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
	"github.com/newdim001/biz-pro/internal/valuation"
)

// Metrics receives one observation per command.
type Metrics interface {
	ObserveLedgerOp(op string, err error, elapsed time.Duration)
}

// Config carries the ledger policy knobs.
type Config struct {
	OpeningBalance        decimal.Decimal
	DefaultPrice          decimal.Decimal
	DistributeInvestments bool
	AllowNegativeStock    bool
}

// DefaultConfig mirrors the environment defaults.
func DefaultConfig() Config {
	return Config{
		OpeningBalance:        decimal.NewFromInt(10000),
		DefaultPrice:          decimal.NewFromInt(50),
		DistributeInvestments: true,
	}
}

// Service is the transaction orchestrator.
type Service struct {
	store     store.Store
	locker    lock.Locker
	valuation *valuation.Service
	metrics   Metrics
	logger    *slog.Logger
	cfg       Config

	cash        *cash.Ledger
	inventory   *inventory.Ledger
	expenses    *expenses.Ledger
	investments *investments.Ledger
	partners    *partners.Book
	market      *market.Board
}

// Option customises Service.
type Option func(*Service)

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithValuation replaces the report service, typically to add a Redis cache.
func WithValuation(v *valuation.Service) Option {
	return func(s *Service) { s.valuation = v }
}

// NewService wires the orchestrator. locker may be nil for a single process.
func NewService(st store.Store, locker lock.Locker, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	s := &Service{
		store:       st,
		locker:      locker,
		valuation:   valuation.NewService(st, nil, logger),
		logger:      logger,
		cfg:         cfg,
		cash:        cash.NewLedger(),
		inventory:   inventory.NewLedger(inventory.LedgerConfig{AllowNegativeStock: cfg.AllowNegativeStock}),
		expenses:    expenses.NewLedger(),
		investments: investments.NewLedger(),
		partners:    partners.NewBook(),
		market:      market.NewBoard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the policy the service runs with.
func (s *Service) Config() Config {
	return s.cfg
}

// command runs fn for one unit: lock, transaction with optional idempotency
// claim, cache bump, audit and metrics.
func (s *Service) command(ctx context.Context, op, unit, idempotencyKey string, fn func(context.Context, store.Tx) (shared.AuditLog, error)) error {
	start := time.Now()
	err := s.locked(ctx, shared.UnitLockKey(unit), func() error {
		return s.transact(ctx, op, idempotencyKey, fn)
	})
	s.observe(op, err, start)
	return err
}

func (s *Service) locked(ctx context.Context, key string, fn func() error) error {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (s *Service) transact(ctx context.Context, op, idempotencyKey string, fn func(context.Context, store.Tx) (shared.AuditLog, error)) error {
	var entry shared.AuditLog
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if idempotencyKey != "" {
			if err := tx.ClaimIdempotencyKey(ctx, shared.IdempotencyKey(op, idempotencyKey)); err != nil {
				return err
			}
		}
		var err error
		entry, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.audit(ctx, op, entry)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.valuation.Invalidate(ctx); err != nil {
		s.logger.Warn("valuation cache bump failed", slog.Any("error", err))
	}
}

// audit writes entry in its own transaction. Failures never undo the command.
func (s *Service) audit(ctx context.Context, op string, entry shared.AuditLog) {
	if entry.Action == "" {
		entry.Action = op
	}
	entry.Actor = shared.ActorFromContext(ctx)
	entry.At = time.Now().UTC()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.RecordAudit(ctx, entry)
	})
	if err != nil {
		s.logger.Warn("audit write failed", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func (s *Service) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveLedgerOp(op, err, time.Since(start))
	}
	if err != nil {
		s.logger.Debug("ledger command failed", slog.String("op", op), slog.Any("error", err))
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(shared.MoneyPlaces)
}
