// Package apperror holds the error taxonomy shared by the stall catalog and
// the booking engine. Handlers map each type to an HTTP status with errors.As.
package apperror

import "fmt"

// ValidationError is malformed input. No state was changed.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// ConflictError is a request that collides with existing state: an overlapping
// booking, a taken stall name, a stall that still has bookings.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// InvalidTransitionError is a lifecycle trigger fired from a state that does
// not allow it. Action and From name what was refused.
type InvalidTransitionError struct {
	Action  string
	From    string
	Message string
}

func (e *InvalidTransitionError) Error() string { return "INVALID_STATE_TRANSITION: " + e.Detail() }

// Detail is the caller-facing message without the code prefix.
func (e *InvalidTransitionError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("cannot %s a booking that is %s", e.Action, e.From)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("NOT_FOUND: %s %s not found", e.Resource, e.ID)
}

// ForbiddenError is an admin-gated operation attempted by another role.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return "FORBIDDEN: " + e.Message }

func Validation(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...any) error {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}
