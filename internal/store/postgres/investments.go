package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/investments"
)

const investmentColumns = `id, unit, date, amount, investor, description, created_at`

func (q queries) ListInvestments(ctx context.Context, unit string) ([]investments.Investment, error) {
	where, args := unitFilter(unit)
	rows, err := q.q.Query(ctx, `SELECT `+investmentColumns+` FROM investments`+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, wrap("list investments", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (investments.Investment, error) {
		var i investments.Investment
		err := row.Scan(&i.ID, &i.Unit, &i.Date, &i.Amount, &i.Investor, &i.Description, &i.CreatedAt)
		return i, err
	})
	return list, wrap("list investments", err)
}

func (t *txStore) AppendInvestment(ctx context.Context, i investments.Investment) error {
	_, err := t.q.Exec(ctx, `INSERT INTO investments (`+investmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		i.ID, i.Unit, i.Date, i.Amount, i.Investor, i.Description, i.CreatedAt)
	return wrap("append investment", err)
}

func (t *txStore) DeleteInvestment(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM investments WHERE id = $1`, id)
	if err != nil {
		return wrap("delete investment", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", investments.ErrInvestmentNotFound, id)
	}
	return nil
}
