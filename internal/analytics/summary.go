package analytics

import (
	"time"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

type (
	// Summary holds the all-time total and the totals of the month, quarter
	// and year containing asOf.
	Summary struct {
		Total      float64            `json:"total"`
		Monthly    float64            `json:"monthly"`
		Quarterly  float64            `json:"quarterly"`
		Yearly     float64            `json:"yearly"`
		ByCategory map[string]float64 `json:"byCategory"`
	}

	FinancialSummary struct {
		TotalIncome    float64 `json:"totalIncome"`
		TotalExpenses  float64 `json:"totalExpenses"`
		TotalBalance   float64 `json:"totalBalance"`
		IncomeSummary  Summary `json:"incomeSummary"`
		ExpenseSummary Summary `json:"expenseSummary"`
	}

	BalanceSheet struct {
		Assets      float64 `json:"assets"`
		Liabilities float64 `json:"liabilities"`
		Equity      float64 `json:"equity"`
	}
)

type entry struct {
	amount   float64
	date     core.Date
	category string
}

func summarize(entries []entry, categories []string, asOf time.Time) Summary {
	var total, month, quarter, year decimal.Decimal
	byCat := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		byCat[c] = decimal.Zero
	}

	asOfQuarter := (int(asOf.Month())-1)/3 + 1
	for _, e := range entries {
		v := decimal.NewFromFloat(e.amount)
		total = total.Add(v)
		byCat[e.category] = byCat[e.category].Add(v)
		if e.date.IsZero() || e.date.Year() != asOf.Year() {
			continue
		}
		year = year.Add(v)
		if e.date.Quarter() == asOfQuarter {
			quarter = quarter.Add(v)
		}
		if e.date.Month() == asOf.Month() {
			month = month.Add(v)
		}
	}

	s := Summary{
		Total:      total.Round(2).InexactFloat64(),
		Monthly:    month.Round(2).InexactFloat64(),
		Quarterly:  quarter.Round(2).InexactFloat64(),
		Yearly:     year.Round(2).InexactFloat64(),
		ByCategory: make(map[string]float64, len(byCat)),
	}
	for c, v := range byCat {
		s.ByCategory[c] = v.Round(2).InexactFloat64()
	}
	return s
}

// IncomeSummary sums incomes; byCategory lists every income category.
func IncomeSummary(incomes []core.Income, asOf time.Time) Summary {
	names := make([]string, 0, core.NumIncomeCategories)
	for _, c := range core.IncomeCategories() {
		names = append(names, c.String())
	}
	return summarize(incomeEntries(incomes), names, asOf)
}

// ExpenseSummary sums expenses; byCategory lists every expense category.
func ExpenseSummary(expenses []core.Expense, asOf time.Time) Summary {
	names := make([]string, 0, core.NumExpenseCategories)
	for _, c := range core.ExpenseCategories() {
		names = append(names, c.String())
	}
	return summarize(expenseEntries(expenses), names, asOf)
}

func Financial(incomes []core.Income, expenses []core.Expense, asOf time.Time) FinancialSummary {
	is := IncomeSummary(incomes, asOf)
	es := ExpenseSummary(expenses, asOf)
	return FinancialSummary{
		TotalIncome:    is.Total,
		TotalExpenses:  es.Total,
		TotalBalance:   core.SumAmounts(is.Total, -es.Total),
		IncomeSummary:  is,
		ExpenseSummary: es,
	}
}

// Balance reports income as assets and expenses as liabilities.
func Balance(incomes []core.Income, expenses []core.Expense) BalanceSheet {
	assets := make([]float64, 0, len(incomes))
	for _, in := range incomes {
		assets = append(assets, in.Amount)
	}
	liabilities := make([]float64, 0, len(expenses))
	for _, e := range expenses {
		liabilities = append(liabilities, e.Amount)
	}
	a, l := core.SumAmounts(assets...), core.SumAmounts(liabilities...)
	return BalanceSheet{Assets: a, Liabilities: l, Equity: core.SumAmounts(a, -l)}
}
