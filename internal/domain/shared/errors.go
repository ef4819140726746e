package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrValidation      = NewDomainError("VALIDATION_FAILED", "Validation failed")
	ErrUnknownDocument = NewDomainError("UNKNOWN_DOCUMENT_TYPE", "Unknown document type")
	ErrMissingPayload  = NewDomainError("MISSING_PAYLOAD", "Document payload is required")
	ErrShuttingDown    = NewDomainError("SERVICE_SHUTTING_DOWN", "Service is shutting down")
)

// CodeOf extracts the code of a DomainError anywhere in the chain, or "" if none
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
