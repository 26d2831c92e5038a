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

const incomeColumns = `id, amount, category, source, description, date,
	total_amount, advance_amount, due_amount, due_date, is_due_paid, due_paid_date,
	version, created_at, updated_at`

// outstandingCond matches core.Income.HasOutstandingDue.
const outstandingCond = `(COALESCE(is_due_paid, 0) = 0 AND COALESCE(due_amount, 0) > 0)`

func scanIncome(ctx context.Context, row scanner) (core.Income, error) {
	var (
		in                   core.Income
		category, date       string
		total, advance, due  sql.NullFloat64
		dueDate, paidDate    sql.NullString
		isPaid               sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&in.ID, &in.Amount, &category, &in.Source, &in.Description, &date,
		&total, &advance, &due, &dueDate, &isPaid, &paidDate,
		&in.Version, &createdAt, &updatedAt); err != nil {
		return core.Income{}, err
	}

	c, err := core.ParseIncomeCategory(category)
	if err != nil {
		slog.WarnContext(ctx, "Unknown income category, reading as OTHER", "id", in.ID, "category", category)
		c = core.IncomeOther
	}
	in.Category = c
	in.Date = parseStoredDate(ctx, "incomes", in.ID, date)
	in.TotalAmount = nullFloat(total)
	in.AdvanceAmount = nullFloat(advance)
	in.DueAmount = nullFloat(due)
	in.DueDate = nullDate(ctx, "incomes", in.ID, dueDate)
	in.IsDuePaid = nullBool(isPaid)
	in.DuePaidDate = nullDate(ctx, "incomes", in.ID, paidDate)
	in.CreatedAt = parseTimestamp(createdAt)
	in.UpdatedAt = parseTimestamp(updatedAt)
	return in, nil
}

func (q *Queries) insertIncome(ctx context.Context, in core.Income) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO incomes (`+incomeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Amount, in.Category.String(), in.Source, in.Description, in.Date.String(),
		floatArg(in.TotalAmount), floatArg(in.AdvanceAmount), floatArg(in.DueAmount),
		dateArg(in.DueDate), boolArg(in.IsDuePaid), dateArg(in.DuePaidDate),
		in.Version, in.CreatedAt.Format(timestampLayout), in.UpdatedAt.Format(timestampLayout))
	return err
}

func (q *Queries) getIncome(ctx context.Context, id string) (core.Income, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE id = ?`, id)
	in, err := scanIncome(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, core.NotFoundf("income", id)
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %s: %w", id, err)
	}
	return in, nil
}

func (q *Queries) updateIncome(ctx context.Context, in core.Income) error {
	_, err := q.db.ExecContext(ctx, `UPDATE incomes SET
		amount = ?, category = ?, source = ?, description = ?, date = ?,
		total_amount = ?, advance_amount = ?, due_amount = ?, due_date = ?,
		is_due_paid = ?, due_paid_date = ?, version = ?, updated_at = ?
		WHERE id = ?`,
		in.Amount, in.Category.String(), in.Source, in.Description, in.Date.String(),
		floatArg(in.TotalAmount), floatArg(in.AdvanceAmount), floatArg(in.DueAmount), dateArg(in.DueDate),
		boolArg(in.IsDuePaid), dateArg(in.DuePaidDate), in.Version, in.UpdatedAt.Format(timestampLayout),
		in.ID)
	return err
}

// settleIncome is the single conditional statement behind MarkDueAsPaid.
func (q *Queries) settleIncome(ctx context.Context, id string, paidDate core.Date, updatedAt string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE incomes SET
		amount = ROUND(amount + due_amount, 2),
		due_amount = 0,
		is_due_paid = 1,
		due_paid_date = ?,
		version = version + 1,
		updated_at = ?
		WHERE id = ? AND `+outstandingCond,
		paidDate.String(), updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryIncomes(ctx context.Context, query string, args ...any) ([]core.Income, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := []core.Income{}
	for rows.Next() {
		in, err := scanIncome(ctx, rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

// CreateIncome normalizes and stores a new income.
func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Normalize(); err != nil {
		return core.Income{}, err
	}
	now := r.timestamp()
	in.ID = uuid.NewString()
	in.Version = 1
	in.CreatedAt = now
	in.UpdatedAt = now

	if err := r.queries.insertIncome(ctx, in); err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", in.ID,
		"amount", in.Amount,
		"category", in.Category.String(),
		"dues_state", in.DuesState().String())
	return in, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, id string) (core.Income, error) {
	return r.queries.getIncome(ctx, id)
}

// ListIncomes returns the incomes matching f, newest first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, f core.IncomeFilter) ([]core.Income, error) {
	var w whereBuilder
	if f.Category != nil {
		w.add("category = ?", f.Category.String())
	}
	w.contains("source", f.Source)
	w.dateRange("date", f.StartDate, f.EndDate)
	if f.HasDues != nil {
		if *f.HasDues {
			w.add(outstandingCond)
		} else {
			w.add("NOT " + outstandingCond)
		}
	}

	incomes, err := r.queries.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes`+w.String()+` ORDER BY date DESC, created_at DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return incomes, nil
}

// UpdateIncome applies patch inside one transaction; nothing is written when
// the patch violates the dues rules.
func (r *SQLiteRepository) UpdateIncome(ctx context.Context, id string, patch core.IncomePatch) (core.Income, error) {
	var updated core.Income
	err := r.inTx(ctx, func(q *Queries) error {
		current, err := q.getIncome(ctx, id)
		if err != nil {
			return err
		}
		next, err := current.Apply(patch)
		if err != nil {
			return err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = r.timestamp()
		if err := q.updateIncome(ctx, next); err != nil {
			return fmt.Errorf("update income %s: %w", id, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return core.Income{}, err
	}

	slog.InfoContext(ctx, "Income updated", "id", id, "version", updated.Version)
	return updated, nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id string) error {
	res, err := r.queries.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete income %s: %w", id, err)
	}
	if n == 0 {
		return core.NotFoundf("income", id)
	}

	slog.InfoContext(ctx, "Income deleted", "id", id)
	return nil
}

// MarkDueAsPaid settles the outstanding due of income id. Inside the write
// transaction the row is read, core.Income.Settle decides the outcome, and one
// conditional UPDATE applies it. The stored result must match the expected one.
func (r *SQLiteRepository) MarkDueAsPaid(ctx context.Context, id string, paidDate core.Date) (core.Income, error) {
	if err := paidDate.Validate(); err != nil {
		return core.Income{}, err
	}

	var settled core.Income
	err := r.inTx(ctx, func(q *Queries) error {
		before, err := q.getIncome(ctx, id)
		if err != nil {
			return err
		}
		want, err := before.Settle(paidDate)
		if err != nil {
			return err
		}

		n, err := q.settleIncome(ctx, id, paidDate, r.timestamp().Format(timestampLayout))
		if err != nil {
			return fmt.Errorf("settle income %s: %w", id, err)
		}
		current, err := q.getIncome(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := current.CheckSettleable(); err != nil {
				return err
			}
			return fmt.Errorf("%w: income %s could not be settled", core.ErrInvalidState, id)
		}
		if !core.AmountsEqual(current.Amount, want.Amount) || current.Due() != 0 || !current.Paid() {
			return fmt.Errorf("%w: income %s settled to amount %.2f due %.2f, expected amount %.2f",
				core.ErrInvalidState, id, current.Amount, current.Due(), want.Amount)
		}
		settled = current
		return nil
	})
	if err != nil {
		return core.Income{}, err
	}

	slog.InfoContext(ctx, "Income due settled",
		"id", id,
		"amount", settled.Amount,
		"due_paid_date", paidDate.String())
	return settled, nil
}

// OutstandingDues lists unpaid dues by due date, undated ones last. The date
// range of f applies to the due date.
func (r *SQLiteRepository) OutstandingDues(ctx context.Context, f core.DuesFilter) ([]core.Income, error) {
	var w whereBuilder
	w.add(outstandingCond)
	if f.Category != nil {
		w.add("category = ?", f.Category.String())
	}
	w.contains("source", f.Source)
	w.dateRange("due_date", f.StartDate, f.EndDate)

	incomes, err := r.queries.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes`+w.String()+
			` ORDER BY due_date IS NULL, due_date ASC, date ASC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("list outstanding dues: %w", err)
	}
	return incomes, nil
}
