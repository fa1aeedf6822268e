package apperror

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// FromValidation turns an ozzo-validation result into a ValidationError.
// Internal rule failures pass through unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return &ValidationError{Code: "VALIDATION_FAILED", Message: err.Error()}
}
