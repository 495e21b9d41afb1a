package config

import (
	"fmt"
	"strings"
)

// ValidationErrors aggregates every field-level validation failure found by
// Validate, so an operator sees the whole list in one run instead of
// fixing one field per invocation.
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "config: " + strings.Join(msgs, "; ")
}

func (e *ValidationErrors) add(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Errorf(format, args...))
}

// asError returns nil if no errors were accumulated, so callers can write
// `return errs.asError()` unconditionally.
func (e *ValidationErrors) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
