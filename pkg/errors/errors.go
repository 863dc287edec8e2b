package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("operation not permitted in current state")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeDatabaseError = "DATABASE_ERROR"
)

// NewValidation builds a validation error carrying the specific mismatch,
// e.g. "cuota 3: interes esperado 12.50, recibido 12.00".
func NewValidation(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(ErrCodeValidation, fmt.Sprintf(format, args...), ErrValidation)
}

// NewNotFound reports a missing entity by kind and identifier.
func NewNotFound(entity string, id interface{}) *BusinessError {
	return NewBusinessError(ErrCodeNotFound, fmt.Sprintf("%s %v no encontrado", entity, id), ErrNotFound)
}

// NewConflict reports an operation rejected because of current state.
func NewConflict(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(ErrCodeConflict, fmt.Sprintf(format, args...), ErrConflict)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(ErrCodeDatabaseError, "database operation failed", err)
}

// Predicates used by handlers to map errors onto HTTP status codes.

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
