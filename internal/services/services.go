// Package services sits between the transports and the store: it runs the
// ledger operations, then announces every successful write as a
// ledger.changed event.
package services

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/storage"
)

// Services groups the ledger services that share one store and one publisher.
type Services struct {
	Incomes   *IncomeService
	Expenses  *ExpenseService
	Invoices  *InvoiceService
	Financial *FinancialService

	store     *storage.SQLiteRepository
	publisher Publisher
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for default dates and asOf values.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires the services. publisher may be nil, in which case no events are sent.
func New(store *storage.SQLiteRepository, publisher Publisher, opts ...Option) *Services {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	n := notifier{publisher: publisher}
	return &Services{
		Incomes:   &IncomeService{notifier: n, store: store, now: o.now},
		Expenses:  &ExpenseService{notifier: n, store: store, now: o.now},
		Invoices:  &InvoiceService{notifier: n, store: store},
		Financial: &FinancialService{store: store, now: o.now},
		store:     store,
		publisher: publisher,
	}
}

// Ready reports whether the store answers.
func (s *Services) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes the store and, when it can be closed, the publisher.
func (s *Services) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close services: %v", errs)
	}
	return nil
}
