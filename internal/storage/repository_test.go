package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"
)

var testNow = time.Date(2025, 2, 15, 10, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"),
		WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func fp(v float64) *float64 { return &v }

func dp(y, m, d int) *core.Date {
	v := core.NewDate(y, m, d)
	return &v
}

func createDuesIncome(t *testing.T, repo *SQLiteRepository) core.Income {
	t.Helper()
	in, err := repo.CreateIncome(context.Background(), core.Income{
		Amount:        5000,
		Category:      core.IncomeWebDevelopment,
		Source:        "Acme Corp",
		Date:          core.NewDate(2025, 1, 20),
		TotalAmount:   fp(10000),
		AdvanceAmount: fp(5000),
		DueAmount:     fp(5000),
		DueDate:       dp(2025, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateIncome() error: %v", err)
	}
	return in
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}
	v, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion() error: %v", err)
	}
	if v != 2 || dirty {
		t.Errorf("version = %d dirty = %v, want 2 false", v, dirty)
	}
	// Running again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations() error: %v", err)
	}
}

func TestIncomeCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	plain, err := repo.CreateIncome(ctx, core.Income{
		Amount: 1200, Category: core.IncomeTraining, Source: "Workshop", Date: core.NewDate(2025, 2, 3),
	})
	if err != nil {
		t.Fatalf("CreateIncome() error: %v", err)
	}
	if plain.ID == "" || plain.Version != 1 || !plain.CreatedAt.Equal(testNow) {
		t.Errorf("unexpected metadata: %+v", plain)
	}

	got, err := repo.GetIncome(ctx, plain.ID)
	if err != nil {
		t.Fatalf("GetIncome() error: %v", err)
	}
	if got.Amount != 1200 || got.Category != core.IncomeTraining || got.Date.String() != "2025-02-03" {
		t.Errorf("GetIncome() = %+v", got)
	}
	if !got.Paid() || got.Due() != 0 || *got.AdvanceAmount != 1200 {
		t.Errorf("plain income dues not filled: %+v", got)
	}

	desc := "On-site"
	updated, err := repo.UpdateIncome(ctx, plain.ID, core.IncomePatch{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateIncome() error: %v", err)
	}
	if updated.Description != desc || updated.Version != 2 {
		t.Errorf("UpdateIncome() = %+v", updated)
	}

	if err := repo.DeleteIncome(ctx, plain.ID); err != nil {
		t.Fatalf("DeleteIncome() error: %v", err)
	}
	if _, err := repo.GetIncome(ctx, plain.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetIncome() after delete error = %v", err)
	}
	if err := repo.DeleteIncome(ctx, plain.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteIncome() error = %v", err)
	}
	if _, err := repo.UpdateIncome(ctx, "missing", core.IncomePatch{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateIncome(missing) error = %v", err)
	}
}

func TestListIncomesFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	createDuesIncome(t, repo)
	for _, in := range []core.Income{
		{Amount: 100, Category: core.IncomeTraining, Source: "Night school", Date: core.NewDate(2025, 1, 5)},
		{Amount: 200, Category: core.IncomeSEOServices, Source: "100%_Organic", Date: core.NewDate(2025, 2, 10)},
	} {
		if _, err := repo.CreateIncome(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	yes, no := true, false
	training := core.IncomeTraining
	tests := []struct {
		name   string
		filter core.IncomeFilter
		want   int
	}{
		{"all", core.IncomeFilter{}, 3},
		{"category", core.IncomeFilter{Category: &training}, 1},
		{"source substring ignores case", core.IncomeFilter{Source: "ACME"}, 1},
		{"like wildcards are literal", core.IncomeFilter{Source: "%_o"}, 1},
		{"date range inclusive", core.IncomeFilter{StartDate: dp(2025, 1, 5), EndDate: dp(2025, 1, 20)}, 2},
		{"has dues", core.IncomeFilter{HasDues: &yes}, 1},
		{"without dues", core.IncomeFilter{HasDues: &no}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListIncomes(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListIncomes() error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListIncomes() returned %d rows, want %d", len(got), tt.want)
			}
		})
	}
}

func TestUpdateIncomeDuesRules(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	in := createDuesIncome(t, repo)

	if _, err := repo.UpdateIncome(ctx, in.ID, core.IncomePatch{DueAmount: fp(1000)}); !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("inconsistent patch error = %v, want ErrInvalidState", err)
	}
	stored, _ := repo.GetIncome(ctx, in.ID)
	if stored.Due() != 5000 || stored.Version != 1 {
		t.Errorf("failed update was written: %+v", stored)
	}

	if _, err := repo.MarkDueAsPaid(ctx, in.ID, core.NewDate(2025, 2, 15)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpdateIncome(ctx, in.ID, core.IncomePatch{DueDate: dp(2025, 9, 1)}); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("frozen dueDate patch error = %v, want ErrInvalidState", err)
	}
	cat := core.IncomeITConsulting
	if _, err := repo.UpdateIncome(ctx, in.ID, core.IncomePatch{Category: &cat}); err != nil {
		t.Errorf("category patch on settled income error = %v", err)
	}
}

func TestMarkDueAsPaid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	in := createDuesIncome(t, repo)
	if in.Paid() {
		t.Fatal("new dues income should not be paid")
	}

	settled, err := repo.MarkDueAsPaid(ctx, in.ID, core.NewDate(2025, 2, 15))
	if err != nil {
		t.Fatalf("MarkDueAsPaid() error: %v", err)
	}
	if settled.Amount != 10000 || settled.Due() != 0 || !settled.Paid() {
		t.Errorf("settled = amount %v due %v paid %v", settled.Amount, settled.Due(), settled.Paid())
	}
	if settled.DuePaidDate == nil || settled.DuePaidDate.String() != "2025-02-15" {
		t.Errorf("duePaidDate = %v", settled.DuePaidDate)
	}
	if *settled.TotalAmount != 10000 || *settled.AdvanceAmount != 5000 {
		t.Errorf("original terms changed: total %v advance %v", *settled.TotalAmount, *settled.AdvanceAmount)
	}

	if _, err := repo.MarkDueAsPaid(ctx, in.ID, core.NewDate(2025, 2, 16)); !errors.Is(err, core.ErrAlreadySettled) {
		t.Errorf("second MarkDueAsPaid() error = %v, want ErrAlreadySettled", err)
	}
	again, _ := repo.GetIncome(ctx, in.ID)
	if again.Amount != 10000 {
		t.Errorf("amount after second settle = %v, want 10000", again.Amount)
	}

	if _, err := repo.MarkDueAsPaid(ctx, "missing", core.NewDate(2025, 2, 16)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("MarkDueAsPaid(missing) error = %v", err)
	}

	plain, _ := repo.CreateIncome(ctx, core.Income{Amount: 1, Category: core.IncomeOther, Source: "x", Date: core.NewDate(2025, 1, 1)})
	if _, err := repo.MarkDueAsPaid(ctx, plain.ID, core.NewDate(2025, 2, 16)); !errors.Is(err, core.ErrNoOutstandingDue) {
		t.Errorf("MarkDueAsPaid(plain) error = %v, want ErrNoOutstandingDue", err)
	}
}

func TestMarkDueAsPaidConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	in := createDuesIncome(t, repo)

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.MarkDueAsPaid(ctx, in.ID, core.NewDate(2025, 2, 15))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, core.ErrAlreadySettled):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d settlements succeeded, want 1", succeeded)
	}
	got, _ := repo.GetIncome(ctx, in.ID)
	if got.Amount != 10000 {
		t.Errorf("amount = %v, want 10000", got.Amount)
	}
}

func TestOutstandingDues(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	mk := func(source string, due *core.Date) core.Income {
		in, err := repo.CreateIncome(ctx, core.Income{
			Amount: 100, Category: core.IncomeCloudServices, Source: source, Date: core.NewDate(2025, 1, 1),
			TotalAmount: fp(300), AdvanceAmount: fp(100), DueAmount: fp(200), DueDate: due,
		})
		if err != nil {
			t.Fatal(err)
		}
		return in
	}
	late := mk("late", dp(2025, 6, 1))
	undated := mk("undated", nil)
	early := mk("early", dp(2025, 3, 1))
	if _, err := repo.CreateIncome(ctx, core.Income{Amount: 5, Category: core.IncomeOther, Source: "paid", Date: core.NewDate(2025, 1, 1)}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.OutstandingDues(ctx, core.DuesFilter{})
	if err != nil {
		t.Fatalf("OutstandingDues() error: %v", err)
	}
	want := []string{early.ID, late.ID, undated.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d dues, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d = %s (%s), want %s", i, got[i].ID, got[i].Source, want[i])
		}
	}

	ranged, err := repo.OutstandingDues(ctx, core.DuesFilter{StartDate: dp(2025, 5, 1), EndDate: dp(2025, 6, 30)})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 1 || ranged[0].ID != late.ID {
		t.Errorf("date range on dueDate returned %d rows", len(ranged))
	}
}

func TestUnparsableStoredDateIsZero(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	_, err := repo.db.ExecContext(ctx, `INSERT INTO expenses (id, amount, category, purpose, description, date, version, created_at, updated_at)
		VALUES ('bad', 10, 'RENT', 'office', '', 'not-a-date', 1, '', '')`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.ListExpenses(ctx, core.ExpenseFilter{})
	if err != nil {
		t.Fatalf("ListExpenses() error: %v", err)
	}
	if len(got) != 1 || !got[0].Date.IsZero() {
		t.Errorf("ListExpenses() = %+v", got)
	}
}

func TestExpenseCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e, err := repo.CreateExpense(ctx, core.Expense{
		Amount: 800, Category: core.ExpenseRent, Purpose: "Office rent", Date: core.NewDate(2025, 2, 1),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{Amount: 1, Category: core.ExpenseRent, Date: core.NewDate(2025, 2, 1)}); !errors.Is(err, core.ErrEmptyPurpose) {
		t.Errorf("CreateExpense without purpose error = %v", err)
	}

	amount := 850.5
	updated, err := repo.UpdateExpense(ctx, e.ID, core.ExpensePatch{Amount: &amount})
	if err != nil {
		t.Fatalf("UpdateExpense() error: %v", err)
	}
	if updated.Amount != 850.5 {
		t.Errorf("amount = %v", updated.Amount)
	}

	list, err := repo.ListExpenses(ctx, core.ExpenseFilter{Purpose: "rent"})
	if err != nil || len(list) != 1 {
		t.Fatalf("ListExpenses() = %d rows, %v", len(list), err)
	}
	if err := repo.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetExpense(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetExpense() after delete error = %v", err)
	}
}

func newInvoice(number string, unit core.BusinessUnit) core.Document {
	return core.Document{
		DocumentNumber: number,
		BusinessUnit:   unit,
		InvoiceDate:    core.NewDate(2025, 2, 10),
		Client:         core.Client{Name: "Globex", Company: "Globex Corporation"},
		Services: []core.ServiceLine{
			{Description: "Landing page", Quantity: 1, Rate: 1500, DiscountPercent: 10, LineAmount: 1350},
		},
		Subtotal:      1500,
		TotalDiscount: 150,
		GrandTotal:    1350,
	}
}

func TestDocumentSequence(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.NextNumber(ctx, core.UnitSoftwareDevelopment, 2025)
	if err != nil {
		t.Fatalf("NextNumber() error: %v", err)
	}
	if first != "STS/SD/2025/1611" {
		t.Fatalf("first number = %q, want STS/SD/2025/1611", first)
	}

	if _, err := repo.CreateDocument(ctx, newInvoice(first, core.UnitSoftwareDevelopment)); err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}
	_, err = repo.CreateDocument(ctx, newInvoice(first, core.UnitSoftwareDevelopment))
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate CreateDocument() error = %v, want ErrConflict", err)
	}
	if want := "STS/SD/2025/1611"; !strings.Contains(err.Error(), want) {
		t.Errorf("conflict message %q does not name %s", err, want)
	}

	second, _ := repo.NextNumber(ctx, core.UnitSoftwareDevelopment, 2025)
	if second != "STS/SD/2025/1612" {
		t.Errorf("second number = %q", second)
	}
	other, _ := repo.NextNumber(ctx, core.UnitDigitalMarketing, 2025)
	if other != "STS/DM/2025/1611" {
		t.Errorf("other unit number = %q", other)
	}

	// Below-floor and malformed suffixes fall back to the floor.
	if _, err := repo.CreateDocument(ctx, newInvoice("STS/IT/2025/7", core.UnitITServices)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateDocument(ctx, newInvoice("STS/IT/2025/draft", core.UnitITServices)); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.NextNumber(ctx, core.UnitITServices, 2025); n != "STS/IT/2025/1611" {
		t.Errorf("IT number = %q, want floor", n)
	}

	// Numeric ordering keeps going past four digits.
	if _, err := repo.CreateDocument(ctx, newInvoice("STS/DM/2025/9999", core.UnitDigitalMarketing)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateDocument(ctx, newInvoice("STS/DM/2025/10000", core.UnitDigitalMarketing)); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.NextNumber(ctx, core.UnitDigitalMarketing, 2025); n != "STS/DM/2025/10001" {
		t.Errorf("DM number = %q, want STS/DM/2025/10001", n)
	}

	// Suffixes that would overflow the sequence are rejected up front.
	_, err = repo.CreateDocument(ctx, newInvoice("STS/DM/2025/9223372036854775807", core.UnitDigitalMarketing))
	if !errors.Is(err, core.ErrInvalidDocumentNumber) {
		t.Fatalf("oversized CreateDocument() error = %v, want ErrInvalidDocumentNumber", err)
	}
	if n, _ := repo.NextNumber(ctx, core.UnitDigitalMarketing, 2025); n != "STS/DM/2025/10001" {
		t.Errorf("DM number after rejection = %q, want STS/DM/2025/10001", n)
	}
}

func TestDocumentAllocation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a, err := repo.CreateDocument(ctx, newInvoice("", core.UnitSoftwareDevelopment))
	if err != nil {
		t.Fatalf("CreateDocument() error: %v", err)
	}
	if a.DocumentNumber != "STS/SD/2025/1611" {
		t.Errorf("allocated %q", a.DocumentNumber)
	}

	// A caller-supplied number moves the counter forward.
	if _, err := repo.CreateDocument(ctx, newInvoice("STS/SD/2025/1700", core.UnitSoftwareDevelopment)); err != nil {
		t.Fatal(err)
	}
	b, _ := repo.CreateDocument(ctx, newInvoice("", core.UnitSoftwareDevelopment))
	if b.DocumentNumber != "STS/SD/2025/1701" {
		t.Errorf("allocated %q after 1700", b.DocumentNumber)
	}

	// Deleting the latest invoice never hands its number out again.
	if err := repo.DeleteDocument(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	c, _ := repo.CreateDocument(ctx, newInvoice("", core.UnitSoftwareDevelopment))
	if c.DocumentNumber != "STS/SD/2025/1702" {
		t.Errorf("allocated %q after delete", c.DocumentNumber)
	}

	const workers = 5
	var wg sync.WaitGroup
	numbers := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := repo.CreateDocument(ctx, newInvoice("", core.UnitSoftwareDevelopment))
			numbers[i], errs[i] = d.DocumentNumber, err
		}(i)
	}
	wg.Wait()
	seen := map[string]bool{}
	for i := range numbers {
		if errs[i] != nil {
			t.Fatalf("concurrent CreateDocument() error: %v", errs[i])
		}
		if seen[numbers[i]] {
			t.Errorf("number %s allocated twice", numbers[i])
		}
		seen[numbers[i]] = true
	}
}

func TestDocumentListUpdateStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	sd, _ := repo.CreateDocument(ctx, newInvoice("", core.UnitSoftwareDevelopment))
	dm := newInvoice("", core.UnitDigitalMarketing)
	dm.Client = core.Client{Name: "Initech"}
	dm.GrandTotal = 500
	dmDoc, err := repo.CreateDocument(ctx, dm)
	if err != nil {
		t.Fatal(err)
	}

	found, err := repo.ListDocuments(ctx, core.DocumentFilter{Search: "globex corp"})
	if err != nil || len(found) != 1 || found[0].ID != sd.ID {
		t.Fatalf("search by company = %d rows, %v", len(found), err)
	}
	found, _ = repo.ListDocuments(ctx, core.DocumentFilter{Search: "dm/2025"})
	if len(found) != 1 || found[0].ID != dmDoc.ID {
		t.Errorf("search by number = %d rows", len(found))
	}
	if found[0].Services == nil || found[0].Client.Name != "Initech" {
		t.Errorf("document JSON columns not decoded: %+v", found[0])
	}

	paid := core.StatusPaid
	if _, err := repo.UpdateDocument(ctx, dmDoc.ID, core.DocumentPatch{Status: &paid}); err != nil {
		t.Fatalf("UpdateDocument() error: %v", err)
	}
	taken := sd.DocumentNumber
	sdUnit := core.UnitSoftwareDevelopment
	if _, err := repo.UpdateDocument(ctx, dmDoc.ID, core.DocumentPatch{DocumentNumber: &taken, BusinessUnit: &sdUnit}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("UpdateDocument() to taken number error = %v", err)
	}
	byStatus, _ := repo.ListDocuments(ctx, core.DocumentFilter{Status: &paid})
	if len(byStatus) != 1 {
		t.Errorf("status filter = %d rows", len(byStatus))
	}

	stats, err := repo.DocumentStats(ctx)
	if err != nil {
		t.Fatalf("DocumentStats() error: %v", err)
	}
	if stats.TotalDocuments != 2 || stats.TotalAmount != 1850 {
		t.Errorf("totals = %d / %v", stats.TotalDocuments, stats.TotalAmount)
	}
	if len(stats.ByBusinessUnit) != 2 || len(stats.ByStatus) != 2 || len(stats.ByDocumentType) != 1 {
		t.Errorf("groups = %+v", stats)
	}
	if len(stats.RecentDocuments) != 2 {
		t.Errorf("recent = %d", len(stats.RecentDocuments))
	}
}
