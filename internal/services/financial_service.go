package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/analytics"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// FinancialService answers the cross-ledger read models. It never writes.
type FinancialService struct {
	store *storage.SQLiteRepository
	now   func() time.Time
}

type snapshot struct {
	incomes  []core.Income
	expenses []core.Expense
	dues     []core.Income
}

// load reads the ledger concurrently. Dues are only read when withDues is set.
func (s *FinancialService) load(ctx context.Context, withDues bool) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.incomes, err = s.store.ListIncomes(gctx, core.IncomeFilter{})
		if err != nil {
			return fmt.Errorf("load incomes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.expenses, err = s.store.ListExpenses(gctx, core.ExpenseFilter{})
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if withDues {
		g.Go(func() error {
			var err error
			snap.dues, err = s.store.OutstandingDues(gctx, core.DuesFilter{})
			if err != nil {
				return fmt.Errorf("load dues: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *FinancialService) Summary(ctx context.Context, asOf time.Time) (analytics.FinancialSummary, error) {
	snap, err := s.load(ctx, false)
	if err != nil {
		return analytics.FinancialSummary{}, err
	}
	return analytics.Financial(snap.incomes, snap.expenses, s.asOf(asOf)), nil
}

// Analytics builds the revenue report and the forward projection.
func (s *FinancialService) Analytics(ctx context.Context, asOf time.Time) (analytics.Analytics, error) {
	snap, err := s.load(ctx, true)
	if err != nil {
		return analytics.Analytics{}, err
	}
	a := analytics.Build(snap.incomes, snap.expenses, snap.dues, s.asOf(asOf))
	if a.Skipped > 0 {
		slog.WarnContext(ctx, "Analytics skipped records with unusable dates", "skipped", a.Skipped)
	}
	return a, nil
}

func (s *FinancialService) BalanceSheet(ctx context.Context) (analytics.BalanceSheet, error) {
	snap, err := s.load(ctx, false)
	if err != nil {
		return analytics.BalanceSheet{}, err
	}
	return analytics.Balance(snap.incomes, snap.expenses), nil
}

func (s *FinancialService) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}
