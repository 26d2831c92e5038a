package analytics

import (
	"time"

	"ledger/internal/core"
)

// OutstandingDue is an income with an open due, annotated relative to asOf.
type OutstandingDue struct {
	core.Income
	IsOverdue   bool `json:"isOverdue"`
	DaysOverdue int  `json:"daysOverdue"`
}

// EnrichDues marks dues whose due date is before asOf's calendar date.
// Both sides are compared without time of day.
func EnrichDues(dues []core.Income, asOf time.Time) []OutstandingDue {
	today := core.DateOf(asOf)
	out := make([]OutstandingDue, 0, len(dues))
	for _, in := range dues {
		d := OutstandingDue{Income: in}
		if in.DueDate != nil && !in.DueDate.IsZero() && in.DueDate.Before(today) {
			d.IsOverdue = true
			d.DaysOverdue = core.DateOf(in.DueDate.Time).DaysUntil(today)
		}
		out = append(out, d)
	}
	return out
}

// TotalDue sums the due amounts of dues.
func TotalDue(dues []OutstandingDue) float64 {
	amounts := make([]float64, 0, len(dues))
	for _, d := range dues {
		amounts = append(amounts, d.Due())
	}
	return core.SumAmounts(amounts...)
}
