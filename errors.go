package record

import (
	"errors"
	"fmt"
)

// Validation failure codes carried by ValidationError.Code.
const (
	// CodePropertyValidation is the default code for failures raised by
	// Invalidate and by validator overrides that do not set their own.
	CodePropertyValidation = "PROPERTY_VALIDATION"
	// CodeDisallowedProperty marks writes rejected by the allow/disallow policy.
	CodeDisallowedProperty = "DISALLOWED_PROPERTY"
	// CodeRuleViolation marks writes rejected by an expression rule.
	CodeRuleViolation = "RULE_VIOLATION"
)

// ErrInvalidArgument is the sentinel wrapped by every ArgumentError.
var ErrInvalidArgument = errors.New("record: invalid argument")

// ArgumentError reports a programmer error: an input whose shape the API does
// not accept. It is never recoverable by retrying the same call.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "record: " + e.Message
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArgument(format string, args ...any) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// ValidationError describes a rejected property value. Details carries
// structured data for caller-level recovery or display; Code categorises the
// failure. Values are immutable by convention once constructed.
type ValidationError struct {
	Message string
	Details map[string]any
	Code    string
}

// NewValidationError constructs a failure with the default code. Details may
// be nil; it is normalised to an empty map so callers can always range it.
func NewValidationError(message string, details map[string]any) *ValidationError {
	if details == nil {
		details = map[string]any{}
	}
	return &ValidationError{
		Message: message,
		Details: details,
		Code:    CodePropertyValidation,
	}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("record: %s [%s]", e.Message, e.Code)
}

// AsValidationError unwraps err into a *ValidationError when one is present
// anywhere in its chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

// BatchError aggregates the failures collected while applying a patch. Every
// entry of the patch is attempted before a BatchError is raised, so Failures
// reflects the full batch, not the first rejection.
//
// Entries that failed with something other than a ValidationError still
// aborted their own write; those errors are kept in Other rather than being
// dropped, and surface through Unwrap alongside the validation failures.
type BatchError struct {
	Failures []*ValidationError
	Other    []error
}

func newBatchError(errs []error) *BatchError {
	batch := &BatchError{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		if vErr, ok := AsValidationError(err); ok {
			batch.Failures = append(batch.Failures, vErr)
			continue
		}
		batch.Other = append(batch.Other, err)
	}
	return batch
}

func (e *BatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%d validation errors", len(e.Failures))
	if len(e.Other) > 0 {
		msg = fmt.Sprintf("%s (%d other errors)", msg, len(e.Other))
	}
	return msg
}

// Unwrap exposes every underlying error so errors.Is and errors.As keep
// working across the aggregate boundary.
func (e *BatchError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, len(e.Failures)+len(e.Other))
	for _, failure := range e.Failures {
		out = append(out, failure)
	}
	out = append(out, e.Other...)
	return out
}
