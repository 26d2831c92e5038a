package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{"number", `{"amount": 12.345}`, 12.35, false},
		{"numeric string", `{"amount": "5000"}`, 5000, false},
		{"comma decimal string", `{"amount": "12,5"}`, 12.5, false},
		{"negative", `{"amount": -1}`, 0, true},
		{"garbage string", `{"amount": "abc"}`, 0, true},
		{"boolean", `{"amount": true}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req expenseRequest
			r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			err := decodeJSON(r, &req)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("error = %v, want a validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeJSON() error = %v", err)
			}
			if req.Amount == nil || float64(*req.Amount) != tt.want {
				t.Errorf("amount = %v, want %v", req.Amount, tt.want)
			}
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty", "", errEmptyBody},
		{"malformed", `{"amount":`, core.ErrValidation},
		{"wrong type", `{"purpose": 12}`, core.ErrValidation},
		{"unknown category", `{"category": "YACHTS"}`, core.ErrInvalidCategory},
		{"bad date", `{"date": "2025-13-01"}`, core.ErrInvalidDate},
		{"unknown field", `{"purpose": "Desk", "vendor": "Ikea"}`, core.ErrValidation},
		{"trailing object", `{"purpose": "Desk"} {"purpose": "Chair"}`, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req expenseRequest
			r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			if err := decodeJSON(r, &req); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeJSON_NamesUnknownField(t *testing.T) {
	var req invoiceRequest
	body := `{"businessUnit":"SD","client":{"name":"Acme","phone":"555"}}`
	r := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	err := decodeJSON(r, &req)
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), `"phone"`) {
		t.Errorf("error %q does not name the field", err)
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var req markPaidRequest
	r := httptest.NewRequest(http.MethodPost, "/incomes/x/mark-paid", nil)
	if err := decodeOptionalJSON(r, &req); err != nil || req.PaidDate != nil {
		t.Fatalf("absent body: err = %v, paidDate = %v", err, req.PaidDate)
	}

	r = httptest.NewRequest(http.MethodPost, "/incomes/x/mark-paid", strings.NewReader(`{"paidDate":"2025-02-15"}`))
	if err := decodeOptionalJSON(r, &req); err != nil {
		t.Fatal(err)
	}
	if req.PaidDate == nil || req.PaidDate.String() != "2025-02-15" {
		t.Errorf("paidDate = %v", req.PaidDate)
	}
}

func TestIncomeRequest_RequiredFields(t *testing.T) {
	amount := Amount(10)
	cat := core.IncomeTraining
	date := core.NewDate(2025, 1, 2)

	tests := []struct {
		name string
		req  incomeRequest
		want error
	}{
		{"missing amount", incomeRequest{Category: &cat, Date: &date}, core.ErrInvalidAmount},
		{"missing category", incomeRequest{Amount: &amount, Date: &date}, core.ErrInvalidCategory},
		{"missing date", incomeRequest{Amount: &amount, Category: &cat}, core.ErrInvalidDate},
		{"complete", incomeRequest{Amount: &amount, Category: &cat, Date: &date}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.req.income(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInvoiceRequest_Document(t *testing.T) {
	body := `{"businessUnit":"sd","invoiceDate":"2025-03-03","client":{"name":"Acme"},"grandTotal":"1200.50"}`
	var req invoiceRequest
	if err := decodeJSON(httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body)), &req); err != nil {
		t.Fatal(err)
	}
	d, err := req.document()
	if err != nil {
		t.Fatalf("document() error = %v", err)
	}
	if d.BusinessUnit != core.UnitSoftwareDevelopment || d.DocumentType != core.DocumentInvoice || d.GrandTotal != 1200.5 {
		t.Errorf("document = %+v", d)
	}

	bad := "XX"
	if _, err := (invoiceRequest{BusinessUnit: &bad}).patch(); !errors.Is(err, core.ErrInvalidBusinessUnit) {
		t.Errorf("patch error = %v, want ErrInvalidBusinessUnit", err)
	}
}

func TestParseIncomeFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/incomes?category=training&source=%20acme%20&startDate=2025-01-01&endDate=2025-03-31&hasDues=true", nil)
	f, q := parseIncomeFilter(r)
	if q.err != nil {
		t.Fatal(q.err)
	}
	if f.Category == nil || *f.Category != core.IncomeTraining {
		t.Errorf("category = %v", f.Category)
	}
	if f.Source != "acme" {
		t.Errorf("source = %q", f.Source)
	}
	if f.StartDate.String() != "2025-01-01" || f.EndDate.String() != "2025-03-31" {
		t.Errorf("range = %v..%v", f.StartDate, f.EndDate)
	}
	if f.HasDues == nil || !*f.HasDues {
		t.Errorf("hasDues = %v", f.HasDues)
	}
}

func TestQueryParams_FirstErrorSticks(t *testing.T) {
	tests := []struct {
		target string
		want   error
	}{
		{"/incomes?startDate=yesterday", core.ErrInvalidDate},
		{"/incomes?hasDues=maybe", core.ErrValidation},
		{"/incomes?category=nope&startDate=bad", core.ErrInvalidCategory},
	}
	for _, tt := range tests {
		_, q := parseIncomeFilter(httptest.NewRequest(http.MethodGet, tt.target, nil))
		if !errors.Is(q.err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.target, q.err, tt.want)
		}
	}
}

func TestParseDocumentFilter(t *testing.T) {
	f, q := parseDocumentFilter(httptest.NewRequest(http.MethodGet, "/invoices?businessUnit=dm&status=sent&search=globex", nil))
	if q.err != nil {
		t.Fatal(q.err)
	}
	if *f.BusinessUnit != core.UnitDigitalMarketing || *f.Status != core.StatusSent || f.Search != "globex" {
		t.Errorf("filter = %+v", f)
	}

	_, q = parseDocumentFilter(httptest.NewRequest(http.MethodGet, "/invoices?status=lost", nil))
	if !errors.Is(q.err, core.ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", q.err)
	}
}

func TestQueryParams_AsOf(t *testing.T) {
	q := newQueryParams(httptest.NewRequest(http.MethodGet, "/financial/analytics?asOf=2025-03-31", nil))
	want := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	if got := q.asOf(); !got.Equal(want) {
		t.Errorf("asOf = %v, want %v", got, want)
	}

	q = newQueryParams(httptest.NewRequest(http.MethodGet, "/financial/analytics", nil))
	if got := q.asOf(); !got.IsZero() {
		t.Errorf("missing asOf = %v, want zero", got)
	}
}
