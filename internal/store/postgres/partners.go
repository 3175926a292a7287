package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/partners"
)

const partnerColumns = `unit, name, share_pct, withdrawn, invested, created_at, updated_at`

func (q queries) ListPartners(ctx context.Context, unit string) ([]partners.Partner, error) {
	where, args := unitFilter(unit)
	return q.partners(ctx, `SELECT `+partnerColumns+` FROM partners`+where+` ORDER BY unit, created_at, name`, args...)
}

func (q queries) partners(ctx context.Context, sql string, args ...any) ([]partners.Partner, error) {
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrap("list partners", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (partners.Partner, error) {
		var p partners.Partner
		err := row.Scan(&p.Unit, &p.Name, &p.SharePct, &p.Withdrawn, &p.Invested, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
	return list, wrap("list partners", err)
}

// PartnersForUpdate locks every partner row of unit. The unit row is locked
// too so concurrent inserts serialize behind it.
func (t *txStore) PartnersForUpdate(ctx context.Context, unit string) ([]partners.Partner, error) {
	if _, err := t.q.Exec(ctx, `SELECT 1 FROM business_units WHERE name = $1 FOR UPDATE`, unit); err != nil {
		return nil, wrap("lock unit", err)
	}
	return t.partners(ctx, `SELECT `+partnerColumns+` FROM partners WHERE unit = $1 ORDER BY created_at, name FOR UPDATE`, unit)
}

func (t *txStore) InsertPartner(ctx context.Context, p partners.Partner) error {
	_, err := t.q.Exec(ctx, `INSERT INTO partners (`+partnerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.Unit, p.Name, p.SharePct, p.Withdrawn, p.Invested, p.CreatedAt, p.UpdatedAt)
	return wrap("insert partner", err)
}

func (t *txStore) UpdatePartner(ctx context.Context, p partners.Partner) error {
	tag, err := t.q.Exec(ctx, `UPDATE partners SET share_pct = $3, withdrawn = $4, invested = $5, updated_at = $6 WHERE unit = $1 AND name = $2`,
		p.Unit, p.Name, p.SharePct, p.Withdrawn, p.Invested, p.UpdatedAt)
	if err != nil {
		return wrap("update partner", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", partners.ErrPartnerNotFound, p.Name)
	}
	return nil
}

func (t *txStore) DeletePartner(ctx context.Context, unit, name string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM partners WHERE unit = $1 AND name = $2`, unit, name)
	if err != nil {
		return wrap("delete partner", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", partners.ErrPartnerNotFound, name)
	}
	return nil
}
