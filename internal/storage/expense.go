package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/core"

	"github.com/google/uuid"
)

const expenseColumns = `id, amount, category, purpose, description, date, version, created_at, updated_at`

func scanExpense(ctx context.Context, row scanner) (core.Expense, error) {
	var (
		e                    core.Expense
		category, date       string
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.ID, &e.Amount, &category, &e.Purpose, &e.Description, &date,
		&e.Version, &createdAt, &updatedAt); err != nil {
		return core.Expense{}, err
	}

	c, err := core.ParseExpenseCategory(category)
	if err != nil {
		slog.WarnContext(ctx, "Unknown expense category, reading as OTHER", "id", e.ID, "category", category)
		c = core.ExpenseOther
	}
	e.Category = c
	e.Date = parseStoredDate(ctx, "expenses", e.ID, date)
	e.CreatedAt = parseTimestamp(createdAt)
	e.UpdatedAt = parseTimestamp(updatedAt)
	return e, nil
}

func (q *Queries) getExpense(ctx context.Context, id string) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFoundf("expense", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	now := r.timestamp()
	e.ID = uuid.NewString()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.queries.db.ExecContext(ctx, `INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount, e.Category.String(), e.Purpose, e.Description, e.Date.String(),
		e.Version, e.CreatedAt.Format(timestampLayout), e.UpdatedAt.Format(timestampLayout))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"amount", e.Amount,
		"category", e.Category.String(),
		"date", e.Date.String())
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return r.queries.getExpense(ctx, id)
}

// ListExpenses returns the expenses matching f, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	var w whereBuilder
	if f.Category != nil {
		w.add("category = ?", f.Category.String())
	}
	w.contains("purpose", f.Purpose)
	w.dateRange("date", f.StartDate, f.EndDate)

	rows, err := r.queries.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses`+w.String()+` ORDER BY date DESC, created_at DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	var updated core.Expense
	err := r.inTx(ctx, func(q *Queries) error {
		current, err := q.getExpense(ctx, id)
		if err != nil {
			return err
		}
		next, err := current.Apply(patch)
		if err != nil {
			return err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = r.timestamp()

		_, err = q.db.ExecContext(ctx, `UPDATE expenses SET
			amount = ?, category = ?, purpose = ?, description = ?, date = ?, version = ?, updated_at = ?
			WHERE id = ?`,
			next.Amount, next.Category.String(), next.Purpose, next.Description, next.Date.String(),
			next.Version, next.UpdatedAt.Format(timestampLayout), id)
		if err != nil {
			return fmt.Errorf("update expense %s: %w", id, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated", "id", id, "version", updated.Version)
	return updated, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.queries.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if n == 0 {
		return core.NotFoundf("expense", id)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}
