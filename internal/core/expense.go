package core

import (
	"fmt"
	"strings"
	"time"
)

type (
	Expense struct {
		ID          string          `json:"id"`
		Amount      float64         `json:"amount"`
		Category    ExpenseCategory `json:"category"`
		Purpose     string          `json:"purpose"`
		Description string          `json:"description,omitempty"`
		Date        Date            `json:"date"`
		Version     int64           `json:"version"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	ExpensePatch struct {
		Amount      *float64
		Category    *ExpenseCategory
		Purpose     *string
		Description *string
		Date        *Date
	}
)

func (e Expense) Validate() error {
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(e.Purpose) == "" {
		return ErrEmptyPurpose
	}
	if len(e.Purpose) > maxTextLength || len(e.Description) > maxTextLength {
		return fmt.Errorf("%w: text too long (max %d characters)", ErrValidation, maxTextLength)
	}
	return e.Date.Validate()
}

// Apply returns the expense with the patch applied and validated.
func (e Expense) Apply(p ExpensePatch) (Expense, error) {
	out := e
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Purpose != nil {
		out.Purpose = strings.TrimSpace(*p.Purpose)
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if err := out.Validate(); err != nil {
		return e, err
	}
	return out, nil
}
