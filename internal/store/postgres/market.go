package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/market"
)

func (q queries) LatestPrice(ctx context.Context) (market.Price, error) {
	var p market.Price
	err := q.q.QueryRow(ctx, `SELECT id, price, recorded_at FROM market_prices ORDER BY recorded_at DESC, seq DESC LIMIT 1`).
		Scan(&p.ID, &p.Price, &p.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Price{}, market.ErrNoPrice
	}
	if err != nil {
		return market.Price{}, wrap("latest price", err)
	}
	return p, nil
}

func (q queries) ListPrices(ctx context.Context, limit int) ([]market.Price, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.q.Query(ctx, `SELECT id, price, recorded_at FROM market_prices ORDER BY recorded_at DESC, seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrap("list prices", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (market.Price, error) {
		var p market.Price
		err := row.Scan(&p.ID, &p.Price, &p.RecordedAt)
		return p, err
	})
	return list, wrap("list prices", err)
}

func (t *txStore) AppendPrice(ctx context.Context, p market.Price) error {
	_, err := t.q.Exec(ctx, `INSERT INTO market_prices (id, price, recorded_at) VALUES ($1, $2, $3)`, p.ID, p.Price, p.RecordedAt)
	return wrap("append price", err)
}
