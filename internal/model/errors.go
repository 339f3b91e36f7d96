package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the stores and the verification
// service unwraps to one of these.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTarget     = errors.New("invalid claim target")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrConflict          = errors.New("conflict")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TargetError reports a claim submitted against an item that cannot be
// claimed. Status is empty when the item does not exist.
type TargetError struct {
	ItemID string
	Status ItemStatus
}

func (e *TargetError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("item %s does not exist", e.ItemID)
	}
	return fmt.Sprintf("item %s is %s, only verified items can be claimed", e.ItemID, e.Status)
}

func (e *TargetError) Unwrap() error { return ErrInvalidTarget }

// TransitionError reports a refused status change. Kind is either
// ErrIllegalTransition or ErrConflict.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
	Kind   error
}

func (e *TransitionError) Error() string {
	if errors.Is(e.Kind, ErrConflict) {
		return fmt.Sprintf("%s %s is %s, cannot become %s", e.Entity, e.ID, e.From, e.To)
	}
	return fmt.Sprintf("%s %s: cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return e.Kind }
