package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/inventory"
)

const inventoryColumns = `id, unit, date, type, quantity_kg, unit_price, total_amount, remarks, created_at`

func (q queries) ListInventory(ctx context.Context, unit string) ([]inventory.Transaction, error) {
	where, args := unitFilter(unit)
	rows, err := q.q.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory_transactions`+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, wrap("list inventory", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Transaction, error) {
		var t inventory.Transaction
		err := row.Scan(&t.ID, &t.Unit, &t.Date, &t.Type, &t.QuantityKg, &t.UnitPrice, &t.TotalAmount, &t.Remarks, &t.CreatedAt)
		return t, err
	})
	return list, wrap("list inventory", err)
}

func (t *txStore) AppendInventory(ctx context.Context, tx inventory.Transaction) error {
	_, err := t.q.Exec(ctx, `INSERT INTO inventory_transactions (`+inventoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tx.ID, tx.Unit, tx.Date, string(tx.Type), tx.QuantityKg, tx.UnitPrice, tx.TotalAmount, tx.Remarks, tx.CreatedAt)
	return wrap("append inventory", err)
}

func (t *txStore) DeleteInventory(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM inventory_transactions WHERE id = $1`, id)
	if err != nil {
		return wrap("delete inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", inventory.ErrTransactionNotFound, id)
	}
	return nil
}
