package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// NumberCompanyPrefix opens every document number.
	NumberCompanyPrefix = "STS"
	// SequenceFloor is the first sequence value of a business unit's year.
	SequenceFloor = 1611
	// MaxSequenceDigits bounds the numeric suffix so that it and its successor fit an int64.
	MaxSequenceDigits = 9
)

type (
	Client struct {
		Name    string `json:"name"`
		Company string `json:"company,omitempty"`
		Address string `json:"address,omitempty"`
		TaxID   string `json:"taxId,omitempty"`
		Email   string `json:"email,omitempty"`
	}

	ServiceLine struct {
		Description     string  `json:"description"`
		Quantity        float64 `json:"quantity"`
		Rate            float64 `json:"rate"`
		DiscountPercent float64 `json:"discountPercent"`
		LineAmount      float64 `json:"lineAmount"`
	}

	// Document is a row of the polymorphic documents table. Totals are
	// stored as entered by the caller.
	Document struct {
		ID             string         `json:"id"`
		DocumentType   DocumentType   `json:"documentType"`
		DocumentNumber string         `json:"documentNumber"`
		BusinessUnit   BusinessUnit   `json:"businessUnit"`
		InvoiceDate    Date           `json:"invoiceDate"`
		DueDate        *Date          `json:"dueDate,omitempty"`
		Client         Client         `json:"client"`
		Services       []ServiceLine  `json:"services"`
		Subtotal       float64        `json:"subtotal"`
		TotalDiscount  float64        `json:"totalDiscount"`
		GrandTotal     float64        `json:"grandTotal"`
		Status         DocumentStatus `json:"status"`
		Notes          string         `json:"notes,omitempty"`
		Version        int64          `json:"version"`
		CreatedAt      time.Time      `json:"createdAt"`
		UpdatedAt      time.Time      `json:"updatedAt"`
	}

	DocumentPatch struct {
		DocumentNumber *string
		BusinessUnit   *BusinessUnit
		InvoiceDate    *Date
		DueDate        *Date
		Client         *Client
		Services       *[]ServiceLine
		Subtotal       *float64
		TotalDiscount  *float64
		GrandTotal     *float64
		Status         *DocumentStatus
		Notes          *string
	}

	// GroupTotal is one row of a grouped document count.
	GroupTotal struct {
		Key         string  `json:"key"`
		Count       int     `json:"count"`
		TotalAmount float64 `json:"totalAmount"`
	}

	DocumentStats struct {
		TotalDocuments  int          `json:"totalDocuments"`
		TotalAmount     float64      `json:"totalAmount"`
		ByDocumentType  []GroupTotal `json:"byDocumentType"`
		ByBusinessUnit  []GroupTotal `json:"byBusinessUnit"`
		ByStatus        []GroupTotal `json:"byStatus"`
		RecentDocuments []Document   `json:"recentDocuments"`
	}
)

// NumberPrefix returns "STS/{unit}/{year}/".
func NumberPrefix(unit BusinessUnit, year int) string {
	return fmt.Sprintf("%s/%s/%d/", NumberCompanyPrefix, unit, year)
}

// FormatNumber builds a document number. Sequences are never zero-padded.
func FormatNumber(unit BusinessUnit, year, seq int) string {
	return NumberPrefix(unit, year) + strconv.Itoa(seq)
}

// ParseNumberSuffix returns the numeric sequence of number when it carries prefix.
func ParseNumberSuffix(number, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok || !isDigits(rest) || len(rest) > MaxSequenceDigits {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// checkNumber rejects numbers of the "STS/..." form whose numeric suffix is
// longer than MaxSequenceDigits. Other free-form numbers are accepted as is.
func checkNumber(number string) error {
	if strings.ContainsAny(number, "\n\r\t") {
		return ErrInvalidDocumentNumber
	}
	if !strings.HasPrefix(number, NumberCompanyPrefix+"/") {
		return nil
	}
	suffix := number[strings.LastIndex(number, "/")+1:]
	if isDigits(suffix) && len(suffix) > MaxSequenceDigits {
		return fmt.Errorf("%w: sequence %s exceeds %d digits", ErrInvalidDocumentNumber, suffix, MaxSequenceDigits)
	}
	return nil
}

// SplitNumber decomposes a well-formed "STS/{unit}/{year}/{seq}" number.
func SplitNumber(number string) (unit BusinessUnit, year, seq int, ok bool) {
	parts := strings.Split(number, "/")
	if len(parts) != 4 || parts[0] != NumberCompanyPrefix {
		return "", 0, 0, false
	}
	unit = BusinessUnit(parts[1])
	if !unit.Valid() {
		return "", 0, 0, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || len(parts[2]) != 4 {
		return "", 0, 0, false
	}
	seq, ok = ParseNumberSuffix(number, NumberPrefix(unit, year))
	if !ok {
		return "", 0, 0, false
	}
	return unit, year, seq, true
}

// NextSequence applies the floor rule: the value after last, never below SequenceFloor.
func NextSequence(last int, ok bool) int {
	if !ok || last < SequenceFloor {
		return SequenceFloor
	}
	return last + 1
}

// Prepare fills defaults on a new document and validates it.
func (d *Document) Prepare() error {
	if d.DocumentType == "" {
		d.DocumentType = DocumentInvoice
	}
	if d.Status == "" {
		d.Status = StatusDraft
	}
	d.DocumentNumber = strings.TrimSpace(d.DocumentNumber)
	if d.Services == nil {
		d.Services = []ServiceLine{}
	}
	return d.Validate()
}

func (d Document) Validate() error {
	if !d.DocumentType.Valid() {
		return ErrInvalidDocumentType
	}
	if !d.BusinessUnit.Valid() {
		return ErrInvalidBusinessUnit
	}
	if !d.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := d.InvoiceDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Client.Name) == "" {
		return ErrEmptyClient
	}
	if err := checkNumber(d.DocumentNumber); err != nil {
		return err
	}
	for _, v := range []float64{d.Subtotal, d.TotalDiscount, d.GrandTotal} {
		if err := ValidateAmount(v); err != nil {
			return err
		}
	}
	for i, s := range d.Services {
		if strings.TrimSpace(s.Description) == "" {
			return fmt.Errorf("%w: service line %d has no description", ErrValidation, i+1)
		}
		if s.Quantity < 0 || s.Rate < 0 || s.LineAmount < 0 {
			return fmt.Errorf("%w: service line %d has a negative value", ErrValidation, i+1)
		}
		if s.DiscountPercent < 0 || s.DiscountPercent > 100 {
			return fmt.Errorf("%w: service line %d discount must be between 0 and 100", ErrValidation, i+1)
		}
	}
	return nil
}

// Apply returns the document with the patch applied and validated.
func (d Document) Apply(p DocumentPatch) (Document, error) {
	out := d
	if p.DocumentNumber != nil {
		out.DocumentNumber = strings.TrimSpace(*p.DocumentNumber)
		if out.DocumentNumber == "" {
			return d, ErrInvalidDocumentNumber
		}
	}
	if p.BusinessUnit != nil {
		out.BusinessUnit = *p.BusinessUnit
	}
	if p.InvoiceDate != nil {
		out.InvoiceDate = *p.InvoiceDate
	}
	if p.DueDate != nil {
		dd := *p.DueDate
		out.DueDate = &dd
	}
	if p.Client != nil {
		out.Client = *p.Client
	}
	if p.Services != nil {
		out.Services = append([]ServiceLine(nil), (*p.Services)...)
	}
	if p.Subtotal != nil {
		out.Subtotal = *p.Subtotal
	}
	if p.TotalDiscount != nil {
		out.TotalDiscount = *p.TotalDiscount
	}
	if p.GrandTotal != nil {
		out.GrandTotal = *p.GrandTotal
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Notes != nil {
		out.Notes = strings.TrimSpace(*p.Notes)
	}
	if err := out.Validate(); err != nil {
		return d, err
	}
	return out, nil
}
