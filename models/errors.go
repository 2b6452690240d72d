// ABOUTME: Validation and not-found errors for the contract book
// ABOUTME: Every validation failure wraps ErrValidation and carries a kind
package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrContractNotFound = errors.New("contract not found")
	ErrPartyNotFound    = errors.New("party not found")
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindCompleteness ErrorKind = "completeness"
	KindEnumeration  ErrorKind = "enumeration"
	KindUniqueness   ErrorKind = "uniqueness"
	KindReference    ErrorKind = "reference"
	KindRequired     ErrorKind = "required"
)

// ValidationError is a per-operation failure that blocks a write. Callers fix
// the data and resubmit; nothing retries automatically.
type ValidationError struct {
	Kind   ErrorKind
	Field  Field
	Status Status
	Value  string
	// Missing lists every absent required field for completeness failures.
	// Field is always Missing[0].
	Missing []Field
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindCompleteness:
		msg := fmt.Sprintf("%s is required when status is %s", e.Field, e.Status)
		if len(e.Missing) > 1 {
			rest := make([]string, 0, len(e.Missing)-1)
			for _, f := range e.Missing[1:] {
				rest = append(rest, string(f))
			}
			msg += " (also missing: " + strings.Join(rest, ", ") + ")"
		}
		return msg
	case KindEnumeration:
		return fmt.Sprintf("%q is not a valid value for %s", e.Value, e.Field)
	case KindUniqueness:
		return fmt.Sprintf("%s %q is already in use", e.Field, e.Value)
	case KindReference:
		return fmt.Sprintf("%s %s does not exist or has been deleted", e.Field, e.Value)
	case KindRequired:
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsKind reports whether err carries a *ValidationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return ve.Kind == kind
}

// UniquenessError builds the error stores return when a contract number collides.
func UniquenessError(number string) *ValidationError {
	return &ValidationError{Kind: KindUniqueness, Field: FieldContractNumber, Value: number}
}

// ReferenceError builds the error stores return for a dangling party reference.
func ReferenceError(field Field, id string) *ValidationError {
	return &ValidationError{Kind: KindReference, Field: field, Value: id}
}
