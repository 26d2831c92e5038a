package services

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/analytics"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// ExpenseService orchestrates expense writes and change events.
type ExpenseService struct {
	notifier
	store *storage.SQLiteRepository
	now   func() time.Time
}

// Create saves the expense first; the event is published only once the row exists.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.notify(ctx, amqp.EntityExpense, amqp.ActionUpsert, created.ID, created.Version)
	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, f)
}

func (s *ExpenseService) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	updated, err := s.store.UpdateExpense(ctx, id, patch)
	if err != nil {
		return core.Expense{}, err
	}
	s.notify(ctx, amqp.EntityExpense, amqp.ActionUpsert, updated.ID, updated.Version)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, amqp.EntityExpense, amqp.ActionDelete, id, 0)
	return nil
}

func (s *ExpenseService) Summary(ctx context.Context, f core.ExpenseFilter, asOf time.Time) (analytics.Summary, error) {
	expenses, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return analytics.Summary{}, fmt.Errorf("expense summary: %w", err)
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return analytics.ExpenseSummary(expenses, asOf), nil
}
