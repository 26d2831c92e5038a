package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/analytics"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// IncomeService orchestrates income writes, dues settlement and change events.
type IncomeService struct {
	notifier
	store *storage.SQLiteRepository
	now   func() time.Time
}

func (s *IncomeService) Create(ctx context.Context, in core.Income) (core.Income, error) {
	created, err := s.store.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, err
	}
	s.notify(ctx, amqp.EntityIncome, amqp.ActionUpsert, created.ID, created.Version)
	return created, nil
}

func (s *IncomeService) Get(ctx context.Context, id string) (core.Income, error) {
	return s.store.GetIncome(ctx, id)
}

func (s *IncomeService) List(ctx context.Context, f core.IncomeFilter) ([]core.Income, error) {
	return s.store.ListIncomes(ctx, f)
}

func (s *IncomeService) Update(ctx context.Context, id string, patch core.IncomePatch) (core.Income, error) {
	updated, err := s.store.UpdateIncome(ctx, id, patch)
	if err != nil {
		return core.Income{}, err
	}
	s.notify(ctx, amqp.EntityIncome, amqp.ActionUpsert, updated.ID, updated.Version)
	return updated, nil
}

func (s *IncomeService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteIncome(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, amqp.EntityIncome, amqp.ActionDelete, id, 0)
	return nil
}

// MarkDueAsPaid settles the outstanding due of id. A nil paidDate means today.
func (s *IncomeService) MarkDueAsPaid(ctx context.Context, id string, paidDate *core.Date) (core.Income, error) {
	date := core.DateOf(s.now())
	if paidDate != nil {
		date = *paidDate
	}
	settled, err := s.store.MarkDueAsPaid(ctx, id, date)
	if core.IsSettleError(err) {
		slog.InfoContext(ctx, "Due settlement rejected", "id", id, "error", err)
	}
	if err != nil {
		return core.Income{}, err
	}
	s.notify(ctx, amqp.EntityIncome, amqp.ActionUpsert, settled.ID, settled.Version)
	return settled, nil
}

// OutstandingDues lists unpaid dues with their overdue status relative to asOf.
func (s *IncomeService) OutstandingDues(ctx context.Context, f core.DuesFilter, asOf time.Time) ([]analytics.OutstandingDue, error) {
	dues, err := s.store.OutstandingDues(ctx, f)
	if err != nil {
		return nil, err
	}
	return analytics.EnrichDues(dues, s.asOf(asOf)), nil
}

// Summary totals the incomes matching f.
func (s *IncomeService) Summary(ctx context.Context, f core.IncomeFilter, asOf time.Time) (analytics.Summary, error) {
	incomes, err := s.store.ListIncomes(ctx, f)
	if err != nil {
		return analytics.Summary{}, fmt.Errorf("income summary: %w", err)
	}
	return analytics.IncomeSummary(incomes, s.asOf(asOf)), nil
}

func (s *IncomeService) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}
