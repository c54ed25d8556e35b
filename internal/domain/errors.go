package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate bank transaction")
	ErrConcurrentUpdate = errors.New("transaction was modified concurrently")
	ErrRuleSetMismatch  = errors.New("rule ids do not match the rules of the direction")
)

// FormatRejectedError is returned for unsupported file types; no batch is created
type FormatRejectedError struct {
	Filename  string
	Extension string
}

func (e *FormatRejectedError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file %q: missing extension", e.Filename)
	}
	return fmt.Sprintf("unsupported file %q: extension %s is not an accepted statement format", e.Filename, e.Extension)
}

// EmptyResultError is returned when a file yields zero usable rows
type EmptyResultError struct {
	Filename string
	Errors   []ParseError
}

func (e *EmptyResultError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("no transactions found in %q", e.Filename)
	}
	return fmt.Sprintf("no valid transactions in %q: %d rows rejected", e.Filename, len(e.Errors))
}

// ContainerError is returned when the file is not well-formed in its container format
type ContainerError struct {
	Format string
	Err    error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("invalid %s content: %v", e.Format, e.Err)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned for a lifecycle step the status machine forbids
type InvalidTransitionError struct {
	TransactionID string
	From          Status
	To            Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transaction %s: cannot move from %s to %s", e.TransactionID, e.From, e.To)
}

// ValidationError describes invalid caller input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a storage failure for a single row
type PersistenceError struct {
	Row int
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AsParseError renders the failure in the shape reported to the import caller
func (e *PersistenceError) AsParseError() ParseError {
	return ParseError{Row: e.Row, Field: "persistence", Message: e.Err.Error()}
}

// SummarizeParseErrors joins the first few messages for log output
func SummarizeParseErrors(errs []ParseError, limit int) string {
	if len(errs) < limit || limit <= 0 {
		limit = len(errs)
	}
	parts := make([]string, 0, limit)
	for _, e := range errs[:limit] {
		parts = append(parts, fmt.Sprintf("row %d %s: %s", e.Row, e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}
