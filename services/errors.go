package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeEmbedding    ErrorType = "embedding_service"
	ErrorTypePersistence  ErrorType = "persistence"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error. Do not call it on the package-level sentinels.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrConversationNotFound = NewDomainError(ErrorTypeNotFound, "conversation not found", nil)

	// Validation Errors
	ErrNoMessages        = NewDomainError(ErrorTypeValidation, "messages cannot be empty", nil)
	ErrEmptyQuery        = NewDomainError(ErrorTypeValidation, "query is required", nil)
	ErrFileTooLarge      = NewDomainError(ErrorTypeValidation, "file exceeds the maximum allowed size", nil)
	ErrFileTypeForbidden = NewDomainError(ErrorTypeValidation, "file type is not allowed", nil)
	ErrEmptyContent      = NewDomainError(ErrorTypeValidation, "no text could be extracted from the file", nil)

	// Permission Errors
	ErrConversationOwner = NewDomainError(ErrorTypeForbidden, "conversation belongs to another user", nil)

	// Rate Limit Errors
	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, "too many chat requests", nil)

	// Internal Errors
	ErrStreamNotDrained = NewDomainError(ErrorTypeInternal, "response stream has not been fully consumed", nil)

	// Embedding Errors
	ErrEmbeddingMalformed = NewDomainError(ErrorTypeEmbedding, "embedding response missing vector", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsEmbeddingError checks if an error came from the embedding service
func IsEmbeddingError(err error) bool {
	return GetErrorType(err) == ErrorTypeEmbedding
}

// IsPersistenceError checks if an error is a storage failure
func IsPersistenceError(err error) bool {
	return GetErrorType(err) == ErrorTypePersistence
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// WrapEmbedding wraps an error as an embedding service error
func WrapEmbedding(message string, err error) error {
	return NewDomainError(ErrorTypeEmbedding, message, err)
}

// WrapPersistence wraps an error as a persistence error. Domain errors pass through unchanged.
func WrapPersistence(message string, err error) error {
	if GetErrorType(err) != "" {
		return err
	}
	return NewDomainError(ErrorTypePersistence, message, err)
}

// ValidationFailed builds a validation error carrying a single field message
func ValidationFailed(field, message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil).WithDetail(field, message)
}
