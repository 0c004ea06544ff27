package inventory

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for an unknown item id, or for a batch update
// that matched nothing.
var ErrNotFound = errors.New("inventory item not found")

// ValidationError reports a rejected input field. The operation aborts
// before mutating the offending entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationErr(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
