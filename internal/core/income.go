package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Income is a single-sided income entry. The dues extension records an
	// advance received now and a due amount still to be collected.
	Income struct {
		ID          string         `json:"id"`
		Amount      float64        `json:"amount"`
		Category    IncomeCategory `json:"category"`
		Source      string         `json:"source"`
		Description string         `json:"description,omitempty"`
		Date        Date           `json:"date"`

		TotalAmount   *float64 `json:"totalAmount,omitempty"`
		AdvanceAmount *float64 `json:"advanceAmount,omitempty"`
		DueAmount     *float64 `json:"dueAmount,omitempty"`
		DueDate       *Date    `json:"dueDate,omitempty"`
		IsDuePaid     *bool    `json:"isDuePaid,omitempty"`
		DuePaidDate   *Date    `json:"duePaidDate,omitempty"`

		Version   int64     `json:"version"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// IncomePatch carries the fields of a partial update; nil means unchanged.
	IncomePatch struct {
		Amount      *float64
		Category    *IncomeCategory
		Source      *string
		Description *string
		Date        *Date

		TotalAmount   *float64
		AdvanceAmount *float64
		DueAmount     *float64
		DueDate       *Date
		IsDuePaid     *bool
		DuePaidDate   *Date
	}

	// DuesState is the position of an income in the dues lifecycle.
	DuesState int
)

const (
	NoDues DuesState = iota
	DuesOutstanding
	DuesSettled
)

func (s DuesState) String() string {
	switch s {
	case DuesOutstanding:
		return "outstanding"
	case DuesSettled:
		return "settled"
	default:
		return "none"
	}
}

const maxTextLength = 500

// Due returns the due amount, 0 when unset.
func (i Income) Due() float64 {
	if i.DueAmount == nil {
		return 0
	}
	return *i.DueAmount
}

// Paid reports the stored isDuePaid flag, false when unset.
func (i Income) Paid() bool {
	return i.IsDuePaid != nil && *i.IsDuePaid
}

func (i Income) hasDuesFields() bool {
	return i.TotalAmount != nil || i.AdvanceAmount != nil || i.DueAmount != nil || i.IsDuePaid != nil
}

// DuesState derives the lifecycle state from the stored fields.
func (i Income) DuesState() DuesState {
	switch {
	case !i.hasDuesFields():
		return NoDues
	case !i.Paid() && i.Due() > 0:
		return DuesOutstanding
	default:
		return DuesSettled
	}
}

// HasOutstandingDue reports isDuePaid == false and dueAmount > 0.
func (i Income) HasOutstandingDue() bool {
	return i.DuesState() == DuesOutstanding
}

// DuesFrozen reports whether the dues fields can no longer change: the
// record is paid and has nothing left to collect.
func (i Income) DuesFrozen() bool {
	return i.Paid() && i.Due() == 0
}

// Normalize validates a new income and fills the dues extension.
// A plain amount becomes a fully received entry; a full dues triple is
// checked against the advance + due = total invariant, and amount must be
// the advance (a zero amount is filled from it).
func (i *Income) Normalize() error {
	if err := i.validateBase(); err != nil {
		return err
	}

	given := 0
	for _, p := range []*float64{i.TotalAmount, i.AdvanceAmount, i.DueAmount} {
		if p != nil {
			given++
			if err := ValidateAmount(*p); err != nil {
				return err
			}
		}
	}

	switch given {
	case 0:
		i.TotalAmount = ptr(i.Amount)
		i.AdvanceAmount = ptr(i.Amount)
		i.DueAmount = ptr(0.0)
		i.IsDuePaid = ptr(true)
		i.DuePaidDate = nil
	case 3:
		if err := checkDuesInvariant(*i.TotalAmount, *i.AdvanceAmount, *i.DueAmount); err != nil {
			return err
		}
		if i.Amount == 0 {
			i.Amount = *i.AdvanceAmount
		} else if err := checkAmountIsAdvance(i.Amount, *i.AdvanceAmount); err != nil {
			return err
		}
		i.IsDuePaid = ptr(!(*i.DueAmount > 0))
		if !*i.IsDuePaid {
			i.DuePaidDate = nil
		}
	default:
		return ErrIncompleteDues
	}
	return nil
}

func (i Income) validateBase() error {
	if err := ValidateAmount(i.Amount); err != nil {
		return err
	}
	if !i.Category.Valid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if len(i.Source) > maxTextLength || len(i.Description) > maxTextLength {
		return fmt.Errorf("%w: text too long (max %d characters)", ErrValidation, maxTextLength)
	}
	return i.Date.Validate()
}

func checkDuesInvariant(total, advance, due float64) error {
	if !AmountsEqual(advance+due, total) {
		return fmt.Errorf("%w: advanceAmount (%.2f) + dueAmount (%.2f) must equal totalAmount (%.2f)",
			ErrInvalidState, advance, due, total)
	}
	return nil
}

// checkAmountIsAdvance enforces that the received amount of an unsettled
// income is its advance.
func checkAmountIsAdvance(amount, advance float64) error {
	if !AmountsEqual(amount, advance) {
		return fmt.Errorf("%w: amount (%.2f) must equal advanceAmount (%.2f)", ErrInvalidState, amount, advance)
	}
	return nil
}

// Apply returns the income with the patch applied, or ErrInvalidState when
// the patch breaks the dues rules. The receiver is not modified.
func (i Income) Apply(p IncomePatch) (Income, error) {
	out := i

	totalChanged := amountChanged(i.TotalAmount, p.TotalAmount)
	advanceChanged := amountChanged(i.AdvanceAmount, p.AdvanceAmount)
	dueChanged := amountChanged(i.DueAmount, p.DueAmount)
	dueDateChanged := p.DueDate != nil && (i.DueDate == nil || !p.DueDate.Equal(i.DueDate.Time))
	paidChanged := p.IsDuePaid != nil && (i.IsDuePaid == nil || *p.IsDuePaid != *i.IsDuePaid)

	if i.DuesFrozen() && (totalChanged || advanceChanged || dueChanged || dueDateChanged || paidChanged) {
		return i, fmt.Errorf("%w: dues of settled income %s are frozen (totalAmount=%s, advanceAmount=%s, dueAmount=%s)",
			ErrInvalidState, i.ID, fmtAmount(i.TotalAmount), fmtAmount(i.AdvanceAmount), fmtAmount(i.DueAmount))
	}

	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Source != nil {
		out.Source = strings.TrimSpace(*p.Source)
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if err := out.validateBase(); err != nil {
		return i, err
	}

	if totalChanged || advanceChanged || dueChanged {
		out.TotalAmount = pick(p.TotalAmount, i.TotalAmount)
		out.AdvanceAmount = pick(p.AdvanceAmount, i.AdvanceAmount)
		out.DueAmount = pick(p.DueAmount, i.DueAmount)
		if out.TotalAmount == nil || out.AdvanceAmount == nil || out.DueAmount == nil {
			return i, ErrIncompleteDues
		}
		for _, v := range []float64{*out.TotalAmount, *out.AdvanceAmount, *out.DueAmount} {
			if err := ValidateAmount(v); err != nil {
				return i, err
			}
		}
		if err := checkDuesInvariant(*out.TotalAmount, *out.AdvanceAmount, *out.DueAmount); err != nil {
			return i, err
		}
	}

	if !i.DuesFrozen() && out.AdvanceAmount != nil {
		if advanceChanged && p.Amount == nil {
			out.Amount = *out.AdvanceAmount
		} else if advanceChanged || amountChanged(&i.Amount, p.Amount) {
			if err := checkAmountIsAdvance(out.Amount, *out.AdvanceAmount); err != nil {
				return i, err
			}
		}
	}

	derivedPaid := !(out.Due() > 0)
	if dueChanged {
		out.IsDuePaid = ptr(derivedPaid)
	} else if paidChanged {
		if *p.IsDuePaid != derivedPaid {
			return i, fmt.Errorf("%w: isDuePaid=%t contradicts dueAmount=%.2f", ErrInvalidState, *p.IsDuePaid, out.Due())
		}
		out.IsDuePaid = ptr(derivedPaid)
	}

	if dueDateChanged {
		d := *p.DueDate
		out.DueDate = &d
	}
	if p.DuePaidDate != nil {
		d := *p.DuePaidDate
		out.DuePaidDate = &d
	}
	return out, nil
}

// CheckSettleable returns why MarkDueAsPaid cannot run on i, or nil. A
// record that carries a settlement date reports ErrAlreadySettled, so a
// repeated settlement is told apart from an income that never had a due.
func (i Income) CheckSettleable() error {
	if i.Paid() && i.DuePaidDate != nil {
		return fmt.Errorf("%w: income %s was settled on %s", ErrAlreadySettled, i.ID, fmtDate(i.DuePaidDate))
	}
	if !(i.Due() > 0) {
		return fmt.Errorf("%w: income %s has dueAmount %.2f", ErrNoOutstandingDue, i.ID, i.Due())
	}
	if i.Paid() {
		return fmt.Errorf("%w: income %s is marked paid", ErrAlreadySettled, i.ID)
	}
	return nil
}

// Settle performs the DuesOutstanding -> DuesSettled transition: the due is
// folded into amount and zeroed, totalAmount and advanceAmount keep the
// original terms.
func (i Income) Settle(paidDate Date) (Income, error) {
	if err := i.CheckSettleable(); err != nil {
		return i, err
	}
	if err := paidDate.Validate(); err != nil {
		return i, err
	}
	out := i
	out.Amount = SumAmounts(i.Amount, i.Due())
	out.DueAmount = ptr(0.0)
	out.IsDuePaid = ptr(true)
	out.DuePaidDate = &paidDate
	return out, nil
}

// IsSettleError reports whether err is one of the MarkDueAsPaid precondition failures.
func IsSettleError(err error) bool {
	return errors.Is(err, ErrNoOutstandingDue) || errors.Is(err, ErrAlreadySettled)
}

func amountChanged(current, next *float64) bool {
	if next == nil {
		return false
	}
	return current == nil || !AmountsEqual(*current, *next)
}

func pick(next, current *float64) *float64 {
	if next != nil {
		v := *next
		return &v
	}
	return current
}

func fmtAmount(p *float64) string {
	if p == nil {
		return "unset"
	}
	return fmt.Sprintf("%.2f", *p)
}

func fmtDate(d *Date) string {
	if d == nil || d.IsZero() {
		return "an unknown date"
	}
	return d.String()
}

func ptr[T any](v T) *T { return &v }
