package sheets

import "context"

// Ports for the ledger mirror. A mirror holds one tab per entity and one row
// per record, keyed by the record id in the first column.
type (
	RowWriter interface {
		// Upsert replaces the row whose key matches, or appends a new one.
		Upsert(ctx context.Context, tab string, row Row) error
	}

	RowDeleter interface {
		// Delete removes the row with key. A missing row is not an error.
		Delete(ctx context.Context, tab, key string) error
	}

	Mirror interface {
		RowWriter
		RowDeleter
	}
)
