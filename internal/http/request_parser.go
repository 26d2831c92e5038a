// Package http exposes the ledger services as a JSON API.
//
// This file holds request decoding: JSON bodies with flexible amounts, and
// query-string filters for the list, summary and dues endpoints.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

var errEmptyBody = fmt.Errorf("%w: empty request body", core.ErrValidation)

// Amount accepts a JSON number or a numeric string and rounds it to cents.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return core.ErrInvalidAmount
		}
		s = str
	}
	v, err := core.ParseAmount(s)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidAmount, s)
	}
	*a = Amount(v)
	return nil
}

func (a *Amount) ptr() *float64 {
	if a == nil {
		return nil
	}
	v := float64(*a)
	return &v
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
// Every decoding failure is a validation error; errors already classified by
// the core types keep their kind.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", core.ErrValidation, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: field %q has the wrong type", core.ErrValidation, typeErr.Field)
		}
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return fmt.Errorf("%w: unknown field %s", core.ErrValidation, field)
		}
		return fmt.Errorf("%w: malformed JSON body", core.ErrValidation)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after the JSON object", core.ErrValidation)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be absent.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

type incomeRequest struct {
	Amount      *Amount              `json:"amount"`
	Category    *core.IncomeCategory `json:"category"`
	Source      *string              `json:"source"`
	Description *string              `json:"description"`
	Date        *core.Date           `json:"date"`

	TotalAmount   *Amount    `json:"totalAmount"`
	AdvanceAmount *Amount    `json:"advanceAmount"`
	DueAmount     *Amount    `json:"dueAmount"`
	DueDate       *core.Date `json:"dueDate"`
	IsDuePaid     *bool      `json:"isDuePaid"`
	DuePaidDate   *core.Date `json:"duePaidDate"`
}

// income builds a new record. Missing required fields are reported before
// the domain validation runs.
func (req incomeRequest) income() (core.Income, error) {
	switch {
	case req.Amount == nil:
		return core.Income{}, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	case req.Category == nil:
		return core.Income{}, fmt.Errorf("%w: category is required", core.ErrInvalidCategory)
	case req.Date == nil:
		return core.Income{}, fmt.Errorf("%w: date is required", core.ErrInvalidDate)
	}
	in := core.Income{
		Amount:        float64(*req.Amount),
		Category:      *req.Category,
		Source:        deref(req.Source),
		Description:   deref(req.Description),
		Date:          *req.Date,
		TotalAmount:   req.TotalAmount.ptr(),
		AdvanceAmount: req.AdvanceAmount.ptr(),
		DueAmount:     req.DueAmount.ptr(),
		DueDate:       req.DueDate,
	}
	return in, nil
}

func (req incomeRequest) patch() core.IncomePatch {
	return core.IncomePatch{
		Amount:        req.Amount.ptr(),
		Category:      req.Category,
		Source:        req.Source,
		Description:   req.Description,
		Date:          req.Date,
		TotalAmount:   req.TotalAmount.ptr(),
		AdvanceAmount: req.AdvanceAmount.ptr(),
		DueAmount:     req.DueAmount.ptr(),
		DueDate:       req.DueDate,
		IsDuePaid:     req.IsDuePaid,
		DuePaidDate:   req.DuePaidDate,
	}
}

type expenseRequest struct {
	Amount      *Amount               `json:"amount"`
	Category    *core.ExpenseCategory `json:"category"`
	Purpose     *string               `json:"purpose"`
	Description *string               `json:"description"`
	Date        *core.Date            `json:"date"`
}

func (req expenseRequest) expense() (core.Expense, error) {
	switch {
	case req.Amount == nil:
		return core.Expense{}, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	case req.Category == nil:
		return core.Expense{}, fmt.Errorf("%w: category is required", core.ErrInvalidCategory)
	case req.Date == nil:
		return core.Expense{}, fmt.Errorf("%w: date is required", core.ErrInvalidDate)
	}
	return core.Expense{
		Amount:      float64(*req.Amount),
		Category:    *req.Category,
		Purpose:     deref(req.Purpose),
		Description: deref(req.Description),
		Date:        *req.Date,
	}, nil
}

func (req expenseRequest) patch() core.ExpensePatch {
	return core.ExpensePatch{
		Amount:      req.Amount.ptr(),
		Category:    req.Category,
		Purpose:     req.Purpose,
		Description: req.Description,
		Date:        req.Date,
	}
}

type invoiceRequest struct {
	DocumentNumber *string              `json:"documentNumber"`
	BusinessUnit   *string              `json:"businessUnit"`
	InvoiceDate    *core.Date           `json:"invoiceDate"`
	DueDate        *core.Date           `json:"dueDate"`
	Client         *core.Client         `json:"client"`
	Services       *[]core.ServiceLine  `json:"services"`
	Subtotal       *Amount              `json:"subtotal"`
	TotalDiscount  *Amount              `json:"totalDiscount"`
	GrandTotal     *Amount              `json:"grandTotal"`
	Status         *core.DocumentStatus `json:"status"`
	Notes          *string              `json:"notes"`
}

func (req invoiceRequest) unit() (*core.BusinessUnit, error) {
	if req.BusinessUnit == nil {
		return nil, nil
	}
	u, err := core.ParseBusinessUnit(*req.BusinessUnit)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (req invoiceRequest) document() (core.Document, error) {
	unit, err := req.unit()
	if err != nil {
		return core.Document{}, err
	}
	if unit == nil {
		return core.Document{}, fmt.Errorf("%w: businessUnit is required", core.ErrInvalidBusinessUnit)
	}
	if req.InvoiceDate == nil {
		return core.Document{}, fmt.Errorf("%w: invoiceDate is required", core.ErrInvalidDate)
	}
	d := core.Document{
		DocumentType:   core.DocumentInvoice,
		DocumentNumber: deref(req.DocumentNumber),
		BusinessUnit:   *unit,
		InvoiceDate:    *req.InvoiceDate,
		DueDate:        req.DueDate,
		Notes:          deref(req.Notes),
	}
	if req.Client != nil {
		d.Client = *req.Client
	}
	if req.Services != nil {
		d.Services = *req.Services
	}
	if p := req.Subtotal.ptr(); p != nil {
		d.Subtotal = *p
	}
	if p := req.TotalDiscount.ptr(); p != nil {
		d.TotalDiscount = *p
	}
	if p := req.GrandTotal.ptr(); p != nil {
		d.GrandTotal = *p
	}
	if req.Status != nil {
		d.Status = *req.Status
	}
	return d, nil
}

func (req invoiceRequest) patch() (core.DocumentPatch, error) {
	unit, err := req.unit()
	if err != nil {
		return core.DocumentPatch{}, err
	}
	return core.DocumentPatch{
		DocumentNumber: req.DocumentNumber,
		BusinessUnit:   unit,
		InvoiceDate:    req.InvoiceDate,
		DueDate:        req.DueDate,
		Client:         req.Client,
		Services:       req.Services,
		Subtotal:       req.Subtotal.ptr(),
		TotalDiscount:  req.TotalDiscount.ptr(),
		GrandTotal:     req.GrandTotal.ptr(),
		Status:         req.Status,
		Notes:          req.Notes,
	}, nil
}

type markPaidRequest struct {
	PaidDate *core.Date `json:"paidDate"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// queryParams wraps url.Values with typed, validating getters. The first
// error sticks and later getters become no-ops.
type queryParams struct {
	values url.Values
	err    error
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{values: r.URL.Query()}
}

func (q *queryParams) text(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

func (q *queryParams) date(key string) *core.Date {
	v := q.text(key)
	if v == "" || q.err != nil {
		return nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		q.err = fmt.Errorf("%w: %s=%q", core.ErrInvalidDate, key, v)
		return nil
	}
	return &d
}

func (q *queryParams) boolean(key string) *bool {
	v := q.text(key)
	if v == "" || q.err != nil {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.err = fmt.Errorf("%w: %s must be true or false", core.ErrValidation, key)
		return nil
	}
	return &b
}

func (q *queryParams) incomeCategory() *core.IncomeCategory {
	v := q.text("category")
	if v == "" || q.err != nil {
		return nil
	}
	c, err := core.ParseIncomeCategory(v)
	if err != nil {
		q.err = err
		return nil
	}
	return &c
}

func (q *queryParams) expenseCategory() *core.ExpenseCategory {
	v := q.text("category")
	if v == "" || q.err != nil {
		return nil
	}
	c, err := core.ParseExpenseCategory(v)
	if err != nil {
		q.err = err
		return nil
	}
	return &c
}

// asOf returns the asOf parameter at noon UTC, or the zero time so the
// services fall back to their clock.
func (q *queryParams) asOf() time.Time {
	d := q.date("asOf")
	if d == nil {
		return time.Time{}
	}
	return d.Add(12 * time.Hour)
}

func parseIncomeFilter(r *http.Request) (core.IncomeFilter, *queryParams) {
	q := newQueryParams(r)
	f := core.IncomeFilter{
		Category:  q.incomeCategory(),
		Source:    q.text("source"),
		StartDate: q.date("startDate"),
		EndDate:   q.date("endDate"),
		HasDues:   q.boolean("hasDues"),
	}
	return f, q
}

func parseExpenseFilter(r *http.Request) (core.ExpenseFilter, *queryParams) {
	q := newQueryParams(r)
	f := core.ExpenseFilter{
		Category:  q.expenseCategory(),
		Purpose:   q.text("purpose"),
		StartDate: q.date("startDate"),
		EndDate:   q.date("endDate"),
	}
	return f, q
}

func parseDuesFilter(r *http.Request) (core.DuesFilter, *queryParams) {
	q := newQueryParams(r)
	f := core.DuesFilter{
		Category:  q.incomeCategory(),
		Source:    q.text("source"),
		StartDate: q.date("startDate"),
		EndDate:   q.date("endDate"),
	}
	return f, q
}

func parseDocumentFilter(r *http.Request) (core.DocumentFilter, *queryParams) {
	q := newQueryParams(r)
	f := core.DocumentFilter{
		StartDate: q.date("startDate"),
		EndDate:   q.date("endDate"),
		Search:    q.text("search"),
	}
	if v := q.text("businessUnit"); v != "" && q.err == nil {
		u, err := core.ParseBusinessUnit(v)
		if err != nil {
			q.err = err
		} else {
			f.BusinessUnit = &u
		}
	}
	if v := q.text("status"); v != "" && q.err == nil {
		s, err := core.ParseDocumentStatus(v)
		if err != nil {
			q.err = err
		} else {
			f.Status = &s
		}
	}
	return f, q
}
