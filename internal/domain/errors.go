package domain

import (
	"errors"
	"fmt"
)

// MissingFieldError reports a required input field that is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}

// IsMissingField reports whether err carries a MissingFieldError.
func IsMissingField(err error) bool {
	var target *MissingFieldError
	return errors.As(err, &target)
}

// RepairFailure reports a correction that could not use its issue payload.
// It is never fatal: the affected field is left as it was.
type RepairFailure struct {
	Check  string
	Kind   IssueKind
	Reason string
}

func (e *RepairFailure) Error() string {
	return fmt.Sprintf("repair %s/%s: %s", e.Check, e.Kind, e.Reason)
}

// IsRepairFailure reports whether err carries a RepairFailure.
func IsRepairFailure(err error) bool {
	var target *RepairFailure
	return errors.As(err, &target)
}
