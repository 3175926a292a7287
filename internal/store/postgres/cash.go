package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/shared"
)

const movementColumns = `id, unit, kind, direction, amount, balance_after, from_party, to_party, reference, description, at`

func (q queries) ListUnits(ctx context.Context) ([]cash.BusinessUnit, error) {
	rows, err := q.q.Query(ctx, `SELECT name, opening_balance, created_at FROM business_units ORDER BY name`)
	if err != nil {
		return nil, wrap("list units", err)
	}
	units, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cash.BusinessUnit, error) {
		var u cash.BusinessUnit
		err := row.Scan(&u.Name, &u.OpeningBalance, &u.CreatedAt)
		return u, err
	})
	return units, wrap("list units", err)
}

func (q queries) GetBalance(ctx context.Context, unit string) (cash.Balance, error) {
	return q.balance(ctx, `SELECT unit, balance, updated_at FROM cash_balances WHERE unit = $1`, unit)
}

func (q queries) balance(ctx context.Context, sql, unit string) (cash.Balance, error) {
	var b cash.Balance
	err := q.q.QueryRow(ctx, sql, unit).Scan(&b.Unit, &b.Balance, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return cash.Balance{}, fmt.Errorf("%w: %s", cash.ErrUnitNotFound, unit)
	}
	if err != nil {
		return cash.Balance{}, wrap("get balance", err)
	}
	return b, nil
}

func (q queries) ListBalances(ctx context.Context) ([]cash.Balance, error) {
	rows, err := q.q.Query(ctx, `SELECT unit, balance, updated_at FROM cash_balances ORDER BY unit`)
	if err != nil {
		return nil, wrap("list balances", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cash.Balance, error) {
		var b cash.Balance
		err := row.Scan(&b.Unit, &b.Balance, &b.UpdatedAt)
		return b, err
	})
	return list, wrap("list balances", err)
}

func (q queries) ListMovements(ctx context.Context, unit string) ([]cash.Movement, error) {
	where, args := unitFilter(unit)
	rows, err := q.q.Query(ctx, `SELECT `+movementColumns+` FROM cash_movements`+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, wrap("list movements", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cash.Movement, error) {
		var m cash.Movement
		err := row.Scan(&m.ID, &m.Unit, &m.Kind, &m.Direction, &m.Amount, &m.BalanceAfter, &m.From, &m.To, &m.Reference, &m.Description, &m.At)
		return m, err
	})
	return list, wrap("list movements", err)
}

func (t *txStore) InsertUnit(ctx context.Context, unit cash.BusinessUnit) error {
	tag, err := t.q.Exec(ctx, `INSERT INTO business_units (name, opening_balance, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		unit.Name, unit.OpeningBalance, unit.CreatedAt)
	if err != nil {
		return wrap("insert unit", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", cash.ErrUnitExists, unit.Name)
	}
	_, err = t.q.Exec(ctx, `INSERT INTO cash_balances (unit, balance, updated_at) VALUES ($1, 0, $2)`, unit.Name, unit.CreatedAt)
	return wrap("insert balance", err)
}

// BalanceForUpdate locks the balance row until the transaction ends.
func (t *txStore) BalanceForUpdate(ctx context.Context, unit string) (cash.Balance, error) {
	return t.balance(ctx, `SELECT unit, balance, updated_at FROM cash_balances WHERE unit = $1 FOR UPDATE`, unit)
}

func (t *txStore) SaveBalance(ctx context.Context, balance cash.Balance) error {
	tag, err := t.q.Exec(ctx, `UPDATE cash_balances SET balance = $2, updated_at = $3 WHERE unit = $1`,
		balance.Unit, shared.RoundMoney(balance.Balance), balance.UpdatedAt)
	if err != nil {
		return wrap("save balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", cash.ErrUnitNotFound, balance.Unit)
	}
	return nil
}

func (t *txStore) AppendMovement(ctx context.Context, m cash.Movement) error {
	_, err := t.q.Exec(ctx, `INSERT INTO cash_movements (`+movementColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.Unit, string(m.Kind), string(m.Direction), m.Amount, m.BalanceAfter, m.From, m.To, m.Reference, m.Description, m.At)
	return wrap("append movement", err)
}
