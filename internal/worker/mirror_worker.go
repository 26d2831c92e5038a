package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/sheets"
)

// Store is the read side of the ledger the worker mirrors from.
type Store interface {
	GetIncome(ctx context.Context, id string) (core.Income, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetDocument(ctx context.Context, id string) (core.Document, error)
	ListIncomes(ctx context.Context, f core.IncomeFilter) ([]core.Income, error)
	ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
	ListDocuments(ctx context.Context, f core.DocumentFilter) ([]core.Document, error)
}

// MirrorWorker applies ledger change events to the sheet mirror. Events only
// name the record; the current row is always read from the store, so
// out-of-order deliveries converge on the latest state.
type MirrorWorker struct {
	store  Store
	mirror sheets.Mirror
	dedupe *cache.Deduper
}

func NewMirrorWorker(store Store, mirror sheets.Mirror, dedupe *cache.Deduper) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror, dedupe: dedupe}
}

func tabFor(e amqp.Entity) (string, error) {
	switch e {
	case amqp.EntityIncome:
		return sheets.TabIncomes, nil
	case amqp.EntityExpense:
		return sheets.TabExpenses, nil
	case amqp.EntityDocument:
		return sheets.TabInvoices, nil
	}
	return "", fmt.Errorf("unknown entity %q", e)
}

// HandleEvent mirrors one change. Duplicate deliveries are skipped; a failed
// event is released from the dedupe cache so the redelivery runs.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	key := ev.DedupeKey()
	if w.dedupe != nil && !w.dedupe.Claim(key) {
		slog.DebugContext(ctx, "Skipping duplicate ledger event", "key", key)
		return nil
	}

	if err := w.apply(ctx, ev); err != nil {
		if w.dedupe != nil {
			w.dedupe.Release(key)
		}
		return err
	}
	return nil
}

func (w *MirrorWorker) apply(ctx context.Context, ev *amqp.LedgerEvent) error {
	tab, err := tabFor(ev.Entity)
	if err != nil {
		return err
	}

	if ev.Action == amqp.ActionDelete {
		if err := w.mirror.Delete(ctx, tab, ev.ID); err != nil {
			return fmt.Errorf("delete mirrored %s %s: %w", ev.Entity, ev.ID, err)
		}
		slog.InfoContext(ctx, "Removed record from mirror", "entity", ev.Entity, "id", ev.ID)
		return nil
	}

	row, err := w.currentRow(ctx, ev.Entity, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was sent; the delete event may still be queued.
		slog.InfoContext(ctx, "Record gone before mirroring, removing row",
			"entity", ev.Entity, "id", ev.ID, "version", ev.Version)
		return w.mirror.Delete(ctx, tab, ev.ID)
	}
	if err != nil {
		return fmt.Errorf("get %s %s from storage: %w", ev.Entity, ev.ID, err)
	}

	if err := w.mirror.Upsert(ctx, tab, row); err != nil {
		return fmt.Errorf("mirror %s %s: %w", ev.Entity, ev.ID, err)
	}
	slog.InfoContext(ctx, "Mirrored record", "entity", ev.Entity, "id", ev.ID, "version", ev.Version)
	return nil
}

func (w *MirrorWorker) currentRow(ctx context.Context, e amqp.Entity, id string) (sheets.Row, error) {
	switch e {
	case amqp.EntityIncome:
		in, err := w.store.GetIncome(ctx, id)
		return sheets.IncomeRow(in), err
	case amqp.EntityExpense:
		ex, err := w.store.GetExpense(ctx, id)
		return sheets.ExpenseRow(ex), err
	default:
		d, err := w.store.GetDocument(ctx, id)
		return sheets.DocumentRow(d), err
	}
}

type pendingRow struct {
	tab string
	row sheets.Row
}

// ResyncStats reports the outcome of a full resync.
type ResyncStats struct {
	Total  int
	Synced int
	Errors int
}

// Resync pushes every stored record to the mirror. It recovers from events
// lost while the worker was down. Individual failures are counted and logged,
// not returned; only a failed read of the store aborts the run.
func (w *MirrorWorker) Resync(ctx context.Context) (ResyncStats, error) {
	var rows []pendingRow
	add := func(tab string, r sheets.Row) {
		rows = append(rows, pendingRow{tab, r})
	}

	incomes, err := w.store.ListIncomes(ctx, core.IncomeFilter{})
	if err != nil {
		return ResyncStats{}, fmt.Errorf("list incomes for resync: %w", err)
	}
	for _, in := range incomes {
		add(sheets.TabIncomes, sheets.IncomeRow(in))
	}
	expenses, err := w.store.ListExpenses(ctx, core.ExpenseFilter{})
	if err != nil {
		return ResyncStats{}, fmt.Errorf("list expenses for resync: %w", err)
	}
	for _, e := range expenses {
		add(sheets.TabExpenses, sheets.ExpenseRow(e))
	}
	docs, err := w.store.ListDocuments(ctx, core.DocumentFilter{})
	if err != nil {
		return ResyncStats{}, fmt.Errorf("list invoices for resync: %w", err)
	}
	for _, d := range docs {
		add(sheets.TabInvoices, sheets.DocumentRow(d))
	}

	stats := ResyncStats{Total: len(rows)}
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := w.mirror.Upsert(ctx, r.tab, r.row); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror record during resync",
				"tab", r.tab, "key", r.row.Key, "error", err)
			stats.Errors++
			continue
		}
		stats.Synced++
	}

	slog.InfoContext(ctx, "Mirror resync completed",
		"total", stats.Total,
		"synced", stats.Synced,
		"errors", stats.Errors)
	return stats, nil
}
