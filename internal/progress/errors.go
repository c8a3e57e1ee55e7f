package progress

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField        = errors.New("missing field")
	ErrInvalidProgressType = errors.New("invalid progress type")
	ErrInvalidPageCount    = errors.New("invalid page count")
	ErrInvalidPercentage   = errors.New("invalid percentage")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidWindow       = errors.New("invalid activity window")
	ErrNotFound            = errors.New("not found")
)

// ValidationError ties a sentinel error to the field that failed it
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err was caused by bad input rather than storage
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
