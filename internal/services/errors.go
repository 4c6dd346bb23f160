package services

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	ErrNotFound        = errors.New("registro no encontrado")
	ErrInvalidPassword = errors.New("contraseña inválida")
	ErrUnauthorized    = errors.New("no autorizado")
	ErrInvalidState    = errors.New("transición de estado inválida")
	ErrDuplicate       = errors.New("registro duplicado")
	ErrConflict        = errors.New("conflicto de concurrencia, intente de nuevo")
)

// ValidationError is a rejection tied to a specific input field. It is
// raised before any state mutation, so a caller receiving one can
// assume nothing was written.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation rejection
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a field-level validation rejection
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
