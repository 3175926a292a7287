package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/shared"
)

// RecordAudit persists an audit entry within the transaction.
func (t *txStore) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	if log.At.IsZero() {
		log.At = t.now()
	}
	meta := log.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	_, err := t.q.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, meta, at) VALUES ($1, $2, $3, $4, $5, $6)`,
		log.Actor, log.Action, log.Entity, log.EntityID, meta, log.At)
	return wrap("record audit", err)
}

// ListAudit returns the newest audit entries first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]shared.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `SELECT actor, action, entity, entity_id, meta, at FROM audit_logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrap("list audit", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.AuditLog, error) {
		var l shared.AuditLog
		err := row.Scan(&l.Actor, &l.Action, &l.Entity, &l.EntityID, &l.Meta, &l.At)
		return l, err
	})
	return list, wrap("list audit", err)
}

// ResetLedger deletes ledger rows, keeping units, users and the audit trail.
func (t *txStore) ResetLedger(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM cash_movements`,
		`DELETE FROM inventory_transactions`,
		`DELETE FROM expenses`,
		`DELETE FROM investments`,
		`DELETE FROM partners`,
		`DELETE FROM market_prices`,
		`DELETE FROM idempotency_keys`,
	} {
		if _, err := t.q.Exec(ctx, stmt); err != nil {
			return wrap("reset ledger", err)
		}
	}
	_, err := t.q.Exec(ctx, `UPDATE cash_balances SET balance = 0, updated_at = $1`, t.now())
	return wrap("reset balances", err)
}
