package ledger

import (
	"errors"
	"fmt"
)

// ValidationError rejects bad input before any store access. Callers fix the
// input and resubmit; it is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrUnknownMovementType is returned for a movement listing or ingest request
// whose type is not one of the four variants.
var ErrUnknownMovementType = errors.New("unknown movement type")
