package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeConflict     = "CONFLICT"
)

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewInternalError wraps an infrastructure failure. The cause stays out of Message.
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: msg,
	}
}

func codeOf(err error) (string, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNotFound
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeValidation
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeForbidden
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeConflict
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	if code, ok := codeOf(err); ok {
		return code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error to the status a handler should answer with.
func HTTPStatus(err error) int {
	switch GetErrorCode(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients.
func PublicMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "An internal error occurred"
}
