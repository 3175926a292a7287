// Package memory is an in-process store for tests and single-node development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newdim001/biz-pro/internal/auth"
	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/expenses"
	"github.com/newdim001/biz-pro/internal/inventory"
	"github.com/newdim001/biz-pro/internal/investments"
	"github.com/newdim001/biz-pro/internal/market"
	"github.com/newdim001/biz-pro/internal/partners"
	"github.com/newdim001/biz-pro/internal/shared"
	"github.com/newdim001/biz-pro/internal/store"
)

type state struct {
	units       []cash.BusinessUnit
	balances    map[string]cash.Balance
	movements   []cash.Movement
	inventory   []inventory.Transaction
	expenses    []expenses.Expense
	investments []investments.Investment
	partners    []partners.Partner
	prices      []market.Price
	idempotency map[string]time.Time
	audit       []shared.AuditLog
}

func newState() *state {
	return &state{balances: make(map[string]cash.Balance), idempotency: make(map[string]time.Time)}
}

func (s *state) clone() *state {
	c := &state{
		units:       append([]cash.BusinessUnit(nil), s.units...),
		balances:    make(map[string]cash.Balance, len(s.balances)),
		movements:   append([]cash.Movement(nil), s.movements...),
		inventory:   append([]inventory.Transaction(nil), s.inventory...),
		expenses:    append([]expenses.Expense(nil), s.expenses...),
		investments: append([]investments.Investment(nil), s.investments...),
		partners:    append([]partners.Partner(nil), s.partners...),
		prices:      append([]market.Price(nil), s.prices...),
		idempotency: make(map[string]time.Time, len(s.idempotency)),
		audit:       append([]shared.AuditLog(nil), s.audit...),
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	return c
}

// Store keeps every table in memory. Transactions run one at a time against
// a copy that replaces the committed state only when fn succeeds.
type Store struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	data  *state
	users map[string]auth.User
	now   func() time.Time
}

// New builds an empty Store.
func New() *Store {
	return &Store{data: newState(), users: make(map[string]auth.User), now: func() time.Time { return time.Now().UTC() }}
}

var _ store.Store = (*Store)(nil)

// WithTx runs fn in a serialized transaction.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &tx{reader: reader{data: work}, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

func (s *Store) view() *reader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &reader{data: s.data}
}

func (s *Store) ListUnits(ctx context.Context) ([]cash.BusinessUnit, error) {
	return s.view().ListUnits(ctx)
}

func (s *Store) GetBalance(ctx context.Context, unit string) (cash.Balance, error) {
	return s.view().GetBalance(ctx, unit)
}

func (s *Store) ListBalances(ctx context.Context) ([]cash.Balance, error) {
	return s.view().ListBalances(ctx)
}

func (s *Store) ListMovements(ctx context.Context, unit string) ([]cash.Movement, error) {
	return s.view().ListMovements(ctx, unit)
}

func (s *Store) ListInventory(ctx context.Context, unit string) ([]inventory.Transaction, error) {
	return s.view().ListInventory(ctx, unit)
}

func (s *Store) ListExpenses(ctx context.Context, unit string) ([]expenses.Expense, error) {
	return s.view().ListExpenses(ctx, unit)
}

func (s *Store) ListInvestments(ctx context.Context, unit string) ([]investments.Investment, error) {
	return s.view().ListInvestments(ctx, unit)
}

func (s *Store) ListPartners(ctx context.Context, unit string) ([]partners.Partner, error) {
	return s.view().ListPartners(ctx, unit)
}

func (s *Store) LatestPrice(ctx context.Context) (market.Price, error) {
	return s.view().LatestPrice(ctx)
}

func (s *Store) ListPrices(ctx context.Context, limit int) ([]market.Price, error) {
	return s.view().ListPrices(ctx, limit)
}

// PurgeIdempotencyKeys drops keys claimed before olderThan.
func (s *Store) PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, at := range s.data.idempotency {
		if at.Before(olderThan) {
			delete(s.data.idempotency, k)
			n++
		}
	}
	return n, nil
}

// ListAudit returns the newest audit entries first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]shared.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shared.AuditLog, 0, len(s.data.audit))
	for i := len(s.data.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.data.audit[i])
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

// FindUserByUsername implements auth.Repository.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

// FindUserByID implements auth.Repository.
func (s *Store) FindUserByID(ctx context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

// InsertUser implements auth.Repository.
func (s *Store) InsertUser(ctx context.Context, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return auth.ErrUserExists
		}
	}
	s.users[user.ID] = user
	return nil
}

// UpdateUser implements auth.Repository.
func (s *Store) UpdateUser(ctx context.Context, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return auth.ErrUserNotFound
	}
	s.users[user.ID] = user
	return nil
}

// ListUsers implements auth.Repository.
func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type reader struct {
	data *state
}

func (r *reader) ListUnits(ctx context.Context) ([]cash.BusinessUnit, error) {
	return append([]cash.BusinessUnit(nil), r.data.units...), nil
}

func (r *reader) GetBalance(ctx context.Context, unit string) (cash.Balance, error) {
	bal, ok := r.data.balances[unit]
	if !ok {
		return cash.Balance{}, fmt.Errorf("%w: %s", cash.ErrUnitNotFound, unit)
	}
	return bal, nil
}

func (r *reader) ListBalances(ctx context.Context) ([]cash.Balance, error) {
	out := make([]cash.Balance, 0, len(r.data.units))
	for _, u := range r.data.units {
		out = append(out, r.data.balances[u.Name])
	}
	return out, nil
}

func (r *reader) ListMovements(ctx context.Context, unit string) ([]cash.Movement, error) {
	return filter(r.data.movements, func(m cash.Movement) bool { return unit == "" || m.Unit == unit }), nil
}

func (r *reader) ListInventory(ctx context.Context, unit string) ([]inventory.Transaction, error) {
	return filter(r.data.inventory, func(t inventory.Transaction) bool { return unit == "" || t.Unit == unit }), nil
}

func (r *reader) ListExpenses(ctx context.Context, unit string) ([]expenses.Expense, error) {
	return filter(r.data.expenses, func(e expenses.Expense) bool { return unit == "" || e.Unit == unit }), nil
}

func (r *reader) ListInvestments(ctx context.Context, unit string) ([]investments.Investment, error) {
	return filter(r.data.investments, func(i investments.Investment) bool { return unit == "" || i.Unit == unit }), nil
}

func (r *reader) ListPartners(ctx context.Context, unit string) ([]partners.Partner, error) {
	return filter(r.data.partners, func(p partners.Partner) bool { return unit == "" || p.Unit == unit }), nil
}

func (r *reader) LatestPrice(ctx context.Context) (market.Price, error) {
	return market.Latest(r.data.prices)
}

func (r *reader) ListPrices(ctx context.Context, limit int) ([]market.Price, error) {
	out := append([]market.Price(nil), r.data.prices...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
