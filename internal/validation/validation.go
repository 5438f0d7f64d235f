package validation

import (
	"errors"
	"fmt"
)

// Error is returned for input the caller must fix. Handlers map it to 400.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newError(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err (or anything it wraps) is a validation error.
func IsValidationError(err error) bool {
	var v *Error
	return errors.As(err, &v)
}
