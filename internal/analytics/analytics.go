// Package analytics turns ledger records into period buckets, growth figures,
// category breakdowns and projections. Every computation takes an explicit
// asOf time and never fails: records without a usable date are skipped.
package analytics

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

// YearsWindow is how many calendar years, current included, the yearly view covers.
const YearsWindow = 5

type (
	// Bucket holds the totals of one period. Revenue is Income - Expenses.
	Bucket struct {
		Period   string  `json:"period"`
		Income   float64 `json:"income"`
		Expenses float64 `json:"expenses"`
		Revenue  float64 `json:"revenue"`
	}

	// Growth holds period-over-period revenue change in percent.
	Growth struct {
		Monthly   float64 `json:"monthly"`
		Quarterly float64 `json:"quarterly"`
		Yearly    float64 `json:"yearly"`
	}

	CategoryTotal struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}

	Report struct {
		Monthly              []Bucket        `json:"monthly"`
		Quarterly            []Bucket        `json:"quarterly"`
		Yearly               []Bucket        `json:"yearly"`
		Growth               Growth          `json:"growth"`
		CategoryWiseIncome   []CategoryTotal `json:"categoryWiseIncome"`
		CategoryWiseExpenses []CategoryTotal `json:"categoryWiseExpenses"`

		// Skipped counts records left out because their date was unusable.
		Skipped int `json:"-"`
	}
)

type totals struct {
	income, expenses decimal.Decimal
}

func (t totals) bucket(period string) Bucket {
	inc := t.income.Round(2).InexactFloat64()
	exp := t.expenses.Round(2).InexactFloat64()
	return Bucket{
		Period:   period,
		Income:   inc,
		Expenses: exp,
		Revenue:  t.income.Sub(t.expenses).Round(2).InexactFloat64(),
	}
}

func (t totals) revenue() float64 {
	return t.income.Sub(t.expenses).InexactFloat64()
}

// periods accumulates totals per month, quarter and year index.
type periods struct {
	months   map[int]*totals
	quarters map[int]*totals
	years    map[int]*totals
}

func monthIndex(year int, month time.Month) int { return year*12 + int(month) - 1 }

func quarterIndex(year, quarter int) int { return year*4 + quarter - 1 }

func newPeriods() *periods {
	return &periods{
		months:   map[int]*totals{},
		quarters: map[int]*totals{},
		years:    map[int]*totals{},
	}
}

func at(m map[int]*totals, k int) *totals {
	t, ok := m[k]
	if !ok {
		t = &totals{}
		m[k] = t
	}
	return t
}

func get(m map[int]*totals, k int) totals {
	if t, ok := m[k]; ok {
		return *t
	}
	return totals{}
}

func (p *periods) add(d core.Date, amount float64, isIncome bool) {
	v := decimal.NewFromFloat(amount)
	for _, t := range []*totals{
		at(p.months, monthIndex(d.Year(), d.Month())),
		at(p.quarters, quarterIndex(d.Year(), d.Quarter())),
		at(p.years, d.Year()),
	} {
		if isIncome {
			t.income = t.income.Add(v)
		} else {
			t.expenses = t.expenses.Add(v)
		}
	}
}

// Compute builds the revenue report anchored at asOf.
func Compute(incomes []core.Income, expenses []core.Expense, asOf time.Time) Report {
	p := newPeriods()
	var r Report
	var incomeByCat [core.NumIncomeCategories]decimal.Decimal
	var expenseByCat [core.NumExpenseCategories]decimal.Decimal

	for _, in := range incomes {
		if in.Date.IsZero() || !in.Category.Valid() {
			r.Skipped++
			continue
		}
		p.add(in.Date, in.Amount, true)
		incomeByCat[in.Category] = incomeByCat[in.Category].Add(decimal.NewFromFloat(in.Amount))
	}
	for _, e := range expenses {
		if e.Date.IsZero() || !e.Category.Valid() {
			r.Skipped++
			continue
		}
		p.add(e.Date, e.Amount, false)
		expenseByCat[e.Category] = expenseByCat[e.Category].Add(decimal.NewFromFloat(e.Amount))
	}

	year := asOf.Year()
	r.Monthly = make([]Bucket, 12)
	for m := time.January; m <= time.December; m++ {
		key := fmt.Sprintf("%04d-%02d", year, int(m))
		r.Monthly[m-1] = get(p.months, monthIndex(year, m)).bucket(key)
	}

	r.Quarterly = make([]Bucket, 4)
	for q := 1; q <= 4; q++ {
		r.Quarterly[q-1] = get(p.quarters, quarterIndex(year, q)).bucket(fmt.Sprintf("Q%d %d", q, year))
	}

	r.Yearly = []Bucket{}
	for y := year - (YearsWindow - 1); y <= year; y++ {
		if t, ok := p.years[y]; ok {
			r.Yearly = append(r.Yearly, t.bucket(strconv.Itoa(y)))
		}
	}

	curMonth := monthIndex(year, asOf.Month())
	curQuarter := quarterIndex(year, (int(asOf.Month())-1)/3+1)
	r.Growth.Monthly = GrowthRate(get(p.months, curMonth).revenue(), get(p.months, curMonth-1).revenue())
	r.Growth.Quarterly = GrowthRate(get(p.quarters, curQuarter).revenue(), get(p.quarters, curQuarter-1).revenue())
	if n := len(r.Yearly); n >= 2 {
		r.Growth.Yearly = GrowthRate(r.Yearly[n-1].Revenue, r.Yearly[n-2].Revenue)
	}

	r.CategoryWiseIncome = make([]CategoryTotal, 0, core.NumIncomeCategories)
	for _, c := range core.IncomeCategories() {
		r.CategoryWiseIncome = append(r.CategoryWiseIncome, CategoryTotal{c.String(), incomeByCat[c].Round(2).InexactFloat64()})
	}
	r.CategoryWiseExpenses = make([]CategoryTotal, 0, core.NumExpenseCategories)
	for _, c := range core.ExpenseCategories() {
		r.CategoryWiseExpenses = append(r.CategoryWiseExpenses, CategoryTotal{c.String(), expenseByCat[c].Round(2).InexactFloat64()})
	}
	sortByTotal(r.CategoryWiseIncome)
	sortByTotal(r.CategoryWiseExpenses)

	return r
}

// sortByTotal orders descending by total; equal totals keep enum order.
func sortByTotal(ts []CategoryTotal) {
	slices.SortStableFunc(ts, func(a, b CategoryTotal) int {
		switch {
		case a.Total > b.Total:
			return -1
		case a.Total < b.Total:
			return 1
		default:
			return 0
		}
	})
}

// GrowthRate returns the percent change from prev to cur. A zero previous
// period yields 100 when cur is positive and 0 otherwise.
func GrowthRate(cur, prev float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return core.RoundCents((cur - prev) / math.Abs(prev) * 100)
}
