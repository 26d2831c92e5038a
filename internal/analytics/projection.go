package analytics

import (
	"time"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

// recentMonths is the number of recent active months the trend is averaged over.
const recentMonths = 3

type (
	Projection struct {
		Income   float64 `json:"income"`
		Expenses float64 `json:"expenses"`
		Balance  float64 `json:"balance"`
	}

	Forecast struct {
		NextQuarter Projection `json:"nextQuarterProjection"`
		NextYear    Projection `json:"nextYearProjection"`
	}

	// Analytics is the report together with its forecast.
	Analytics struct {
		Report
		Forecast
	}
)

// baseline is the monthly trend a projection extrapolates.
type baseline struct {
	income, expenses, net float64
}

func computeBaseline(r Report, incomes []core.Income, expenses []core.Expense, asOf time.Time) baseline {
	var recent []Bucket
	for m := int(asOf.Month()) - 1; m >= 0 && m < len(r.Monthly) && len(recent) < recentMonths; m-- {
		b := r.Monthly[m]
		if b.Income != 0 || b.Expenses != 0 {
			recent = append(recent, b)
		}
	}

	var b baseline
	if n := float64(len(recent)); n > 0 {
		var inc, exp, net float64
		for _, m := range recent {
			inc += m.Income
			exp += m.Expenses
			net += m.Revenue
		}
		b = baseline{income: inc / n, expenses: exp / n, net: net / n}
	}

	if b.income == 0 {
		b.income = historicalMonthlyAverage(incomeEntries(incomes))
	}
	if b.expenses == 0 {
		b.expenses = historicalMonthlyAverage(expenseEntries(expenses))
	}
	if len(recent) == 0 {
		b.net = b.income - b.expenses
	}
	return b
}

// historicalMonthlyAverage divides the all-time total by the number of
// distinct months that have a record.
func historicalMonthlyAverage(entries []entry) float64 {
	months := map[int]struct{}{}
	total := decimal.Zero
	for _, e := range entries {
		if e.date.IsZero() {
			continue
		}
		months[monthIndex(e.date.Year(), e.date.Month())] = struct{}{}
		total = total.Add(decimal.NewFromFloat(e.amount))
	}
	if len(months) == 0 {
		return 0
	}
	return total.Div(decimal.NewFromInt(int64(len(months)))).InexactFloat64()
}

// scheduledDues sums outstanding dues whose due date falls in [from, to).
func scheduledDues(dues []core.Income, from, to core.Date) float64 {
	sum := decimal.Zero
	for _, in := range dues {
		if !in.HasOutstandingDue() || in.DueDate == nil || in.DueDate.IsZero() {
			continue
		}
		if in.DueDate.Before(from) || !in.DueDate.Before(to) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(in.Due()))
	}
	return sum.InexactFloat64()
}

func project(b baseline, months int, dues float64) Projection {
	n := float64(months)
	return Projection{
		Income:   core.RoundCents(b.income*n + dues),
		Expenses: core.RoundCents(b.expenses * n),
		Balance:  core.RoundCents(b.net*n + dues),
	}
}

// Project forecasts the next quarter and the next year from the recent
// monthly trend plus the outstanding dues scheduled inside each window. The
// windows start at the first day of the month after asOf.
func Project(r Report, incomes []core.Income, expenses []core.Expense, dues []core.Income, asOf time.Time) Forecast {
	b := computeBaseline(r, incomes, expenses, asOf)
	today := core.DateOf(asOf)
	start := today.MonthStart(1)
	return Forecast{
		NextQuarter: project(b, 3, scheduledDues(dues, start, today.MonthStart(4))),
		NextYear:    project(b, 12, scheduledDues(dues, start, today.MonthStart(13))),
	}
}

// Build computes the report and its forecast in one call.
func Build(incomes []core.Income, expenses []core.Expense, dues []core.Income, asOf time.Time) Analytics {
	r := Compute(incomes, expenses, asOf)
	return Analytics{Report: r, Forecast: Project(r, incomes, expenses, dues, asOf)}
}

func incomeEntries(incomes []core.Income) []entry {
	out := make([]entry, 0, len(incomes))
	for _, in := range incomes {
		out = append(out, entry{in.Amount, in.Date, in.Category.String()})
	}
	return out
}

func expenseEntries(expenses []core.Expense) []entry {
	out := make([]entry, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, entry{e.Amount, e.Date, e.Category.String()})
	}
	return out
}
