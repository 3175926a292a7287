package valuation

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/market"
)

// Source exposes the reads a snapshot needs. An empty unit lists all units.
type Source interface {
	ListInventory(ctx context.Context, unit string) ([]inventory.Transaction, error)
	ListExpenses(ctx context.Context, unit string) ([]expenses.Expense, error)
	LatestPrice(ctx context.Context) (market.Price, error)
}

// Service loads snapshots and serves cached reports. The cache is never
// authoritative: when Redis fails, reports are computed from the source.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	// stale is set when an invalidation could not reach Redis. Reads skip
	// the cache until a later bump succeeds.
	stale atomic.Bool
}

// NewService wires a Source with a Cache helper. cache and logger may be nil.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// Snapshot reads the current history for unit.
func (s *Service) Snapshot(ctx context.Context, unit string) (Snapshot, error) {
	return LoadSnapshot(ctx, s.source, unit)
}

// LoadSnapshot reads a snapshot from any Source, including an open store transaction.
func LoadSnapshot(ctx context.Context, source Source, unit string) (Snapshot, error) {
	txs, err := source.ListInventory(ctx, unit)
	if err != nil {
		return Snapshot{}, err
	}
	list, err := source.ListExpenses(ctx, unit)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Unit: unit, Inventory: txs, Expenses: list}
	latest, err := source.LatestPrice(ctx)
	switch {
	case err == nil:
		snap.LatestPrice, snap.HasPrice = latest.Price, true
	case errors.Is(err, market.ErrNoPrice):
	default:
		return Snapshot{}, err
	}
	return snap, nil
}

// Report returns the valuation report for unit, "" for all units.
func (s *Service) Report(ctx context.Context, unit string) (Report, error) {
	if !s.cacheUsable(ctx) {
		return s.evaluate(ctx, unit)
	}
	key, err := s.cache.BuildKey(ctx, "valuation", "report", unitToken(unit))
	if err != nil {
		s.cacheFailed(err)
		return s.evaluate(ctx, unit)
	}
	ch := s.group.DoChan(key, func() (interface{}, error) {
		var report Report
		loaded := false
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
			r, err := s.evaluate(ctx, unit)
			if err != nil {
				return nil, err
			}
			loaded = true
			return r, nil
		})
		if errors.Is(err, ErrCacheUnavailable) {
			s.cacheFailed(err)
			if loaded {
				return report, nil
			}
			return s.evaluate(ctx, unit)
		}
		return report, err
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

// Invalidate drops cached reports after a ledger write. On failure the
// service stops reading the cache until a bump goes through.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Bump(ctx); err != nil {
		s.stale.Store(true)
		return err
	}
	s.stale.Store(false)
	return nil
}

func (s *Service) evaluate(ctx context.Context, unit string) (Report, error) {
	snap, err := s.Snapshot(ctx, unit)
	if err != nil {
		return Report{}, err
	}
	return Evaluate(snap), nil
}

func (s *Service) cacheUsable(ctx context.Context) bool {
	if !s.stale.Load() {
		return true
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.cacheFailed(err)
		return false
	}
	s.stale.Store(false)
	return true
}

func (s *Service) cacheFailed(err error) {
	s.logger.Warn("valuation cache unavailable, computing report", slog.Any("error", err))
}

func unitToken(unit string) string {
	if unit == "" {
		return "-"
	}
	return unit
}
