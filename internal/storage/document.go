package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/core"

	"github.com/google/uuid"
)

const documentColumns = `id, document_type, document_number, business_unit, invoice_date, due_date,
	client, services, subtotal, total_discount, grand_total, status, notes,
	version, created_at, updated_at`

const recentDocumentsLimit = 5

func scanDocument(ctx context.Context, row scanner) (core.Document, error) {
	var (
		d                        core.Document
		docType, unit, status    string
		invoiceDate              string
		dueDate                  sql.NullString
		clientJSON, servicesJSON string
		createdAt, updatedAt     string
	)
	if err := row.Scan(&d.ID, &docType, &d.DocumentNumber, &unit, &invoiceDate, &dueDate,
		&clientJSON, &servicesJSON, &d.Subtotal, &d.TotalDiscount, &d.GrandTotal, &status, &d.Notes,
		&d.Version, &createdAt, &updatedAt); err != nil {
		return core.Document{}, err
	}

	d.DocumentType = core.DocumentType(docType)
	d.BusinessUnit = core.BusinessUnit(unit)
	d.Status = core.DocumentStatus(status)
	d.InvoiceDate = parseStoredDate(ctx, "documents", d.ID, invoiceDate)
	d.DueDate = nullDate(ctx, "documents", d.ID, dueDate)
	if err := json.Unmarshal([]byte(clientJSON), &d.Client); err != nil {
		return core.Document{}, fmt.Errorf("decode client of document %s: %w", d.ID, err)
	}
	d.Services = []core.ServiceLine{}
	if err := json.Unmarshal([]byte(servicesJSON), &d.Services); err != nil {
		return core.Document{}, fmt.Errorf("decode services of document %s: %w", d.ID, err)
	}
	d.CreatedAt = parseTimestamp(createdAt)
	d.UpdatedAt = parseTimestamp(updatedAt)
	return d, nil
}

func encodeDocumentJSON(d core.Document) (client, services string, err error) {
	c, err := json.Marshal(d.Client)
	if err != nil {
		return "", "", fmt.Errorf("encode client: %w", err)
	}
	lines := d.Services
	if lines == nil {
		lines = []core.ServiceLine{}
	}
	s, err := json.Marshal(lines)
	if err != nil {
		return "", "", fmt.Errorf("encode services: %w", err)
	}
	return string(c), string(s), nil
}

func conflictError(d core.Document) error {
	return fmt.Errorf("%w: document number %s already exists for business unit %s",
		core.ErrConflict, d.DocumentNumber, d.BusinessUnit)
}

func (q *Queries) getDocument(ctx context.Context, id string) (core.Document, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, core.NotFoundf("document", id)
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return d, nil
}

func (q *Queries) queryDocuments(ctx context.Context, query string, args ...any) ([]core.Document, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []core.Document{}
	for rows.Next() {
		d, err := scanDocument(ctx, rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// maxSequence returns the largest numeric suffix among numbers carrying the
// (unit, year) prefix. Suffixes are compared as integers, so 10000 sorts after 9999.
// Suffixes longer than core.MaxSequenceDigits are ignored.
func (q *Queries) maxSequence(ctx context.Context, docType core.DocumentType, unit core.BusinessUnit, year int) (int, bool, error) {
	prefix := core.NumberPrefix(unit, year)
	var maxSeq sql.NullInt64
	err := q.db.QueryRowContext(ctx, `SELECT MAX(CAST(substr(document_number, ?) AS INTEGER))
		FROM documents
		WHERE document_type = ? AND business_unit = ?
			AND substr(document_number, 1, ?) = ?
			AND length(document_number) BETWEEN ? AND ?
			AND substr(document_number, ?) NOT GLOB '*[^0-9]*'`,
		len(prefix)+1, string(docType), string(unit), len(prefix), prefix,
		len(prefix)+1, len(prefix)+core.MaxSequenceDigits, len(prefix)+1).Scan(&maxSeq)
	if err != nil {
		return 0, false, fmt.Errorf("scan document numbers: %w", err)
	}
	if !maxSeq.Valid {
		return 0, false, nil
	}
	return int(maxSeq.Int64), true, nil
}

// allocateSequence atomically advances the (type, unit, year) counter and
// returns the new value, never below the largest stored suffix + 1 or the floor.
func (q *Queries) allocateSequence(ctx context.Context, docType core.DocumentType, unit core.BusinessUnit, year int) (int, error) {
	last, ok, err := q.maxSequence(ctx, docType, unit, year)
	if err != nil {
		return 0, err
	}
	candidate := core.NextSequence(last, ok)

	var seq int
	err = q.db.QueryRowContext(ctx, `INSERT INTO document_sequences (document_type, business_unit, year, last_value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (document_type, business_unit, year)
		DO UPDATE SET last_value = MAX(last_value + 1, excluded.last_value)
		RETURNING last_value`,
		string(docType), string(unit), year, candidate).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate sequence: %w", err)
	}
	return seq, nil
}

// observeNumber raises the counter when a caller supplies a well-formed number.
func (q *Queries) observeNumber(ctx context.Context, d core.Document) error {
	unit, year, seq, ok := core.SplitNumber(d.DocumentNumber)
	if !ok || unit != d.BusinessUnit {
		return nil
	}
	_, err := q.db.ExecContext(ctx, `INSERT INTO document_sequences (document_type, business_unit, year, last_value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (document_type, business_unit, year)
		DO UPDATE SET last_value = MAX(last_value, excluded.last_value)`,
		string(d.DocumentType), string(unit), year, seq)
	if err != nil {
		return fmt.Errorf("advance sequence: %w", err)
	}
	return nil
}

// NextNumber suggests the next invoice number for unit in year. The number is
// not reserved.
func (r *SQLiteRepository) NextNumber(ctx context.Context, unit core.BusinessUnit, year int) (string, error) {
	if !unit.Valid() {
		return "", core.ErrInvalidBusinessUnit
	}
	last, ok, err := r.queries.maxSequence(ctx, core.DocumentInvoice, unit, year)
	if err != nil {
		return "", err
	}
	return core.FormatNumber(unit, year, core.NextSequence(last, ok)), nil
}

// CreateDocument stores a new document. An empty document number is allocated
// from the counter of the current year inside the same transaction; a supplied
// number that is already taken fails with core.ErrConflict.
func (r *SQLiteRepository) CreateDocument(ctx context.Context, d core.Document) (core.Document, error) {
	if err := d.Prepare(); err != nil {
		return core.Document{}, err
	}
	now := r.timestamp()
	d.ID = uuid.NewString()
	d.Version = 1
	d.CreatedAt = now
	d.UpdatedAt = now

	err := r.inTx(ctx, func(q *Queries) error {
		if d.DocumentNumber == "" {
			year := now.Year()
			seq, err := q.allocateSequence(ctx, d.DocumentType, d.BusinessUnit, year)
			if err != nil {
				return err
			}
			d.DocumentNumber = core.FormatNumber(d.BusinessUnit, year, seq)
		} else if err := q.observeNumber(ctx, d); err != nil {
			return err
		}

		client, services, err := encodeDocumentJSON(d)
		if err != nil {
			return err
		}
		_, err = q.db.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, string(d.DocumentType), d.DocumentNumber, string(d.BusinessUnit), d.InvoiceDate.String(),
			dateArg(d.DueDate), client, services, d.Subtotal, d.TotalDiscount, d.GrandTotal,
			string(d.Status), d.Notes, d.Version, d.CreatedAt.Format(timestampLayout), d.UpdatedAt.Format(timestampLayout))
		if isUniqueViolation(err) {
			return conflictError(d)
		}
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Document{}, err
	}

	slog.InfoContext(ctx, "Document saved",
		"id", d.ID,
		"document_number", d.DocumentNumber,
		"business_unit", string(d.BusinessUnit),
		"grand_total", d.GrandTotal)
	return d, nil
}

func (r *SQLiteRepository) GetDocument(ctx context.Context, id string) (core.Document, error) {
	return r.queries.getDocument(ctx, id)
}

// ListDocuments returns invoices matching f, latest invoice date first. Search
// matches the number, the client name or the client company.
func (r *SQLiteRepository) ListDocuments(ctx context.Context, f core.DocumentFilter) ([]core.Document, error) {
	var w whereBuilder
	w.add("document_type = ?", string(core.DocumentInvoice))
	if f.BusinessUnit != nil {
		w.add("business_unit = ?", string(*f.BusinessUnit))
	}
	if f.Status != nil {
		w.add("status = ?", string(*f.Status))
	}
	w.dateRange("invoice_date", f.StartDate, f.EndDate)
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(LOWER(document_number) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(json_extract(client, '$.name'), '')) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(json_extract(client, '$.company'), '')) LIKE ? ESCAPE '\')`, p, p, p)
	}

	docs, err := r.queries.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents`+w.String()+` ORDER BY invoice_date DESC, created_at DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (r *SQLiteRepository) UpdateDocument(ctx context.Context, id string, patch core.DocumentPatch) (core.Document, error) {
	var updated core.Document
	err := r.inTx(ctx, func(q *Queries) error {
		current, err := q.getDocument(ctx, id)
		if err != nil {
			return err
		}
		next, err := current.Apply(patch)
		if err != nil {
			return err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = r.timestamp()

		if next.DocumentNumber != current.DocumentNumber || next.BusinessUnit != current.BusinessUnit {
			if err := q.observeNumber(ctx, next); err != nil {
				return err
			}
		}
		client, services, err := encodeDocumentJSON(next)
		if err != nil {
			return err
		}
		_, err = q.db.ExecContext(ctx, `UPDATE documents SET
			document_number = ?, business_unit = ?, invoice_date = ?, due_date = ?,
			client = ?, services = ?, subtotal = ?, total_discount = ?, grand_total = ?,
			status = ?, notes = ?, version = ?, updated_at = ?
			WHERE id = ?`,
			next.DocumentNumber, string(next.BusinessUnit), next.InvoiceDate.String(), dateArg(next.DueDate),
			client, services, next.Subtotal, next.TotalDiscount, next.GrandTotal,
			string(next.Status), next.Notes, next.Version, next.UpdatedAt.Format(timestampLayout), id)
		if isUniqueViolation(err) {
			return conflictError(next)
		}
		if err != nil {
			return fmt.Errorf("update document %s: %w", id, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return core.Document{}, err
	}

	slog.InfoContext(ctx, "Document updated", "id", id, "version", updated.Version)
	return updated, nil
}

func (r *SQLiteRepository) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.queries.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n == 0 {
		return core.NotFoundf("document", id)
	}

	slog.InfoContext(ctx, "Document deleted", "id", id)
	return nil
}

func (q *Queries) groupTotals(ctx context.Context, column string) ([]core.GroupTotal, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*), COALESCE(SUM(grand_total), 0)
		FROM documents GROUP BY `+column+` ORDER BY `+column)
	if err != nil {
		return nil, fmt.Errorf("group documents by %s: %w", column, err)
	}
	defer rows.Close()

	groups := []core.GroupTotal{}
	for rows.Next() {
		var g core.GroupTotal
		if err := rows.Scan(&g.Key, &g.Count, &g.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.TotalAmount = core.RoundCents(g.TotalAmount)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DocumentStats aggregates every stored document.
func (r *SQLiteRepository) DocumentStats(ctx context.Context) (core.DocumentStats, error) {
	var stats core.DocumentStats
	err := r.queries.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(grand_total), 0) FROM documents`).
		Scan(&stats.TotalDocuments, &stats.TotalAmount)
	if err != nil {
		return stats, fmt.Errorf("count documents: %w", err)
	}
	stats.TotalAmount = core.RoundCents(stats.TotalAmount)

	if stats.ByDocumentType, err = r.queries.groupTotals(ctx, "document_type"); err != nil {
		return stats, err
	}
	if stats.ByBusinessUnit, err = r.queries.groupTotals(ctx, "business_unit"); err != nil {
		return stats, err
	}
	if stats.ByStatus, err = r.queries.groupTotals(ctx, "status"); err != nil {
		return stats, err
	}

	stats.RecentDocuments, err = r.queries.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT ?`, recentDocumentsLimit)
	if err != nil {
		return stats, fmt.Errorf("recent documents: %w", err)
	}
	return stats, nil
}
