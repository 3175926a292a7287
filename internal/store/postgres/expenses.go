package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/newdim001/biz-pro/internal/expenses"
)

const expenseColumns = `id, unit, date, category, amount, description, payment_method, partner, created_at`

func (q queries) ListExpenses(ctx context.Context, unit string) ([]expenses.Expense, error) {
	where, args := unitFilter(unit)
	rows, err := q.q.Query(ctx, `SELECT `+expenseColumns+` FROM expenses`+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, wrap("list expenses", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (expenses.Expense, error) {
		var e expenses.Expense
		err := row.Scan(&e.ID, &e.Unit, &e.Date, &e.Category, &e.Amount, &e.Description, &e.PaymentMethod, &e.Partner, &e.CreatedAt)
		return e, err
	})
	return list, wrap("list expenses", err)
}

func (t *txStore) AppendExpense(ctx context.Context, e expenses.Expense) error {
	_, err := t.q.Exec(ctx, `INSERT INTO expenses (`+expenseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Unit, e.Date, string(e.Category), e.Amount, e.Description, string(e.PaymentMethod), e.Partner, e.CreatedAt)
	return wrap("append expense", err)
}

func (t *txStore) DeleteExpense(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return wrap("delete expense", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", expenses.ErrExpenseNotFound, id)
	}
	return nil
}
