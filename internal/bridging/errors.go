package bridging

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by table mutations.
var (
	ErrInvalid  = errors.New("invalid value")
	ErrNotFound = errors.New("entry not found")
	ErrExists   = errors.New("entry already exists")
	ErrLimit    = errors.New("table full")
)

// ValidationError reports an invariant violation in one table entry.
type ValidationError struct {
	Table   string // "bridge", "filter", "marking", "interface"
	Key     int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %d: %s: %s", e.Table, e.Key, e.Field, e.Message)
}

// Unwrap makes errors.Is(err, ErrInvalid) hold for validation failures.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes each violation to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

func (e *ValidationErrors) add(table string, key int, field, format string, args ...any) {
	*e = append(*e, &ValidationError{
		Table:   table,
		Key:     key,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}
