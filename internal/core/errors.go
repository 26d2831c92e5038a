package core

import (
	"errors"
	"fmt"
)

// Error kinds. Callers wrap them with context and match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrNoOutstandingDue = errors.New("no outstanding due")
	ErrAlreadySettled   = errors.New("due already settled")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation error")
)

// Validation failures. Every one of them matches ErrValidation.
var (
	ErrInvalidAmount         = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate           = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidCategory       = fmt.Errorf("%w: invalid category", ErrValidation)
	ErrInvalidBusinessUnit   = fmt.Errorf("%w: invalid business unit", ErrValidation)
	ErrInvalidStatus         = fmt.Errorf("%w: invalid document status", ErrValidation)
	ErrInvalidDocumentType   = fmt.Errorf("%w: invalid document type", ErrValidation)
	ErrEmptySource           = fmt.Errorf("%w: empty source", ErrValidation)
	ErrEmptyPurpose          = fmt.Errorf("%w: empty purpose", ErrValidation)
	ErrEmptyClient           = fmt.Errorf("%w: empty client name", ErrValidation)
	ErrIncompleteDues        = fmt.Errorf("%w: totalAmount, advanceAmount and dueAmount must be given together", ErrValidation)
	ErrInvalidDocumentNumber = fmt.Errorf("%w: invalid document number", ErrValidation)
)

// Kind returns the name of the error kind err belongs to, or "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNoOutstandingDue):
		return "no_outstanding_due"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "internal"
	}
}

// NotFoundf builds an ErrNotFound naming the missing entity.
func NotFoundf(entity, id string) error {
	return fmt.Errorf("%w: %s with id %q", ErrNotFound, entity, id)
}
