package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrDuplicateRequest = errors.New("duplicate request")
)

// ValidationError reports a rejected field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
