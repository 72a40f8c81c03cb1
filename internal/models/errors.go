package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	ErrUnknownClient = fmt.Errorf("unknown client: %w", ErrNotFound)

	// ErrInvalidRange is returned when a start date falls after its end date.
	ErrInvalidRange = errors.New("start date is after end date")

	// ErrEmptySelection marks a billing run that matched no time entries. The
	// calculator reports it as a flag; only callers that refuse to create an
	// empty invoice return it.
	ErrEmptySelection = errors.New("no unbilled time entries in range")

	ErrOverApplication = errors.New("payment application exceeds remaining amount")

	ErrRenderFailure = errors.New("invoice cannot be rendered")

	ErrInvalidStatusTransition = errors.New("invalid invoice status transition")

	ErrAlreadyBilled = errors.New("time entry already billed")

	ErrValidation = errors.New("validation failed")
)

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}
