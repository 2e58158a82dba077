package quote

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrIncompleteSelection = errors.New("select one option per product before approving")
	ErrMissingComments     = errors.New("add comments to guide re-quoting")
	ErrInvalidTransition   = errors.New("transition not allowed from current status")
	ErrReadOnly            = errors.New("quote is read-only in its current status")
	ErrNotApproved         = errors.New("quote is not approved")
	ErrLastRow             = errors.New("a quote must keep at least one row")
	ErrRowNotFound         = errors.New("row not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrNotFound            = errors.New("quote not found")
)

// ValidationError wraps a sentinel with the offending field and a readable detail.
type ValidationError struct {
	Err     error
	Field   string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, field, details string) error {
	return &ValidationError{Err: err, Field: field, Details: details}
}

// PersistenceError reports a failed store call together with the identity of
// the attempted operation, so callers can decide whether to retry.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("persistence %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
