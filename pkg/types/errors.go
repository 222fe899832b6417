package types

import (
	"errors"
	"fmt"
)

// Validation failures. All are terminal: the same static configuration fails
// the same way on every attempt.
var (
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrInvalidPeriodLabel   = errors.New("invalid period label")
	ErrNonMonotonicSchedule = errors.New("non-monotonic schedule")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidAddress       = errors.New("invalid address")

	ErrTotalMismatch       = errors.New("total supply mismatch")
	ErrConstructorMismatch = errors.New("constructor mismatch")
)

// FieldError locates a validation failure in the deployment configuration.
type FieldError struct {
	Field   string // e.g. "periods[3]"
	Value   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	msg := e.Err.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Field == "" {
		return msg
	}
	if e.Value != "" {
		return fmt.Sprintf("%s (%q): %s", e.Field, e.Value, msg)
	}
	return fmt.Sprintf("%s: %s", e.Field, msg)
}

func (e *FieldError) Unwrap() error { return e.Err }

// NewFieldError creates a FieldError wrapping kind.
func NewFieldError(kind error, field, value, message string) *FieldError {
	return &FieldError{Field: field, Value: value, Message: message, Err: kind}
}

// IndexField formats name[i].
func IndexField(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
