package sheets

import (
	"time"

	"ledger/internal/core"
)

// Tab names, one per mirrored entity.
const (
	TabIncomes  = "Incomes"
	TabExpenses = "Expenses"
	TabInvoices = "Invoices"
)

// Row is one mirrored record. Values[0] is always the key.
type Row struct {
	Key    string
	Values []any
}

var headers = map[string][]string{
	TabIncomes: {
		"ID", "Date", "Category", "Source", "Description", "Amount", "Total Amount",
		"Advance Amount", "Due Amount", "Due Date", "Due Paid", "Due Paid Date", "Version", "Updated At",
	},
	TabExpenses: {
		"ID", "Date", "Category", "Purpose", "Description", "Amount", "Version", "Updated At",
	},
	TabInvoices: {
		"ID", "Number", "Business Unit", "Status", "Invoice Date", "Due Date", "Client", "Company",
		"Subtotal", "Discount", "Grand Total", "Version", "Updated At",
	},
}

// Tabs lists the mirror tabs in a stable order.
func Tabs() []string {
	return []string{TabIncomes, TabExpenses, TabInvoices}
}

// Headers returns the header row of tab, or nil for an unknown tab.
func Headers(tab string) []string {
	return append([]string(nil), headers[tab]...)
}

func IncomeRow(in core.Income) Row {
	return row(in.ID,
		in.Date.String(), in.Category.String(), in.Source, in.Description, in.Amount,
		optFloat(in.TotalAmount), optFloat(in.AdvanceAmount), optFloat(in.DueAmount),
		optDate(in.DueDate), in.Paid(), optDate(in.DuePaidDate),
		in.Version, stamp(in.UpdatedAt))
}

func ExpenseRow(e core.Expense) Row {
	return row(e.ID,
		e.Date.String(), e.Category.String(), e.Purpose, e.Description, e.Amount,
		e.Version, stamp(e.UpdatedAt))
}

func DocumentRow(d core.Document) Row {
	return row(d.ID,
		d.DocumentNumber, string(d.BusinessUnit), string(d.Status), d.InvoiceDate.String(),
		optDate(d.DueDate), d.Client.Name, d.Client.Company,
		d.Subtotal, d.TotalDiscount, d.GrandTotal,
		d.Version, stamp(d.UpdatedAt))
}

func row(key string, values ...any) Row {
	return Row{Key: key, Values: append([]any{key}, values...)}
}

func optFloat(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}

func optDate(d *core.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
