package services

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// InvoiceService orchestrates invoice writes, numbering and change events.
type InvoiceService struct {
	notifier
	store *storage.SQLiteRepository
}

// NextNumber suggests the next number for unit in the year CreateDocument
// would allocate in.
func (s *InvoiceService) NextNumber(ctx context.Context, unit core.BusinessUnit) (string, error) {
	return s.store.NextNumber(ctx, unit, s.store.SequenceYear())
}

func (s *InvoiceService) Create(ctx context.Context, d core.Document) (core.Document, error) {
	created, err := s.store.CreateDocument(ctx, d)
	if err != nil {
		return core.Document{}, err
	}
	s.notify(ctx, amqp.EntityDocument, amqp.ActionUpsert, created.ID, created.Version)
	return created, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (core.Document, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context, f core.DocumentFilter) ([]core.Document, error) {
	return s.store.ListDocuments(ctx, f)
}

func (s *InvoiceService) Update(ctx context.Context, id string, patch core.DocumentPatch) (core.Document, error) {
	updated, err := s.store.UpdateDocument(ctx, id, patch)
	if err != nil {
		return core.Document{}, err
	}
	s.notify(ctx, amqp.EntityDocument, amqp.ActionUpsert, updated.ID, updated.Version)
	return updated, nil
}

func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, amqp.EntityDocument, amqp.ActionDelete, id, 0)
	return nil
}

func (s *InvoiceService) Stats(ctx context.Context) (core.DocumentStats, error) {
	return s.store.DocumentStats(ctx)
}
