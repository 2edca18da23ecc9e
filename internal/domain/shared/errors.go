package shared

import (
	"errors"
	"unicode/utf8"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so
// errors.Is(err, ErrNotFound) holds for any specialised NOT_FOUND error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInsufficientBalance    = "INSUFFICIENT_BALANCE"
	CodeBalanceBelowZero       = "BALANCE_BELOW_ZERO"
	CodeInvalidInvoiceType     = "INVALID_INVOICE_TYPE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeConstraintViolation    = "CONSTRAINT_VIOLATION"
	CodeInternal               = "INTERNAL_ERROR"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidAmount          = NewDomainError(CodeInvalidAmount, "Amount must be greater than zero")
	ErrInsufficientBalance    = NewDomainError(CodeInsufficientBalance, "Insufficient bonus balance")
	ErrBalanceBelowZero       = NewDomainError(CodeBalanceBelowZero, "Bonus balance cannot go below zero")
	ErrInvalidInvoiceType     = NewDomainError(CodeInvalidInvoiceType, "Invalid invoice type")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrConstraintViolation    = NewDomainError(CodeConstraintViolation, "Data constraint violated")
	ErrInternal               = NewDomainError(CodeInternal, "Internal error")
)

// NewInternalError wraps an unanticipated failure. Only a brief cause is kept;
// the original error is not exposed to callers.
func NewInternalError(cause error) *DomainError {
	msg := "Unexpected error"
	if cause != nil {
		msg += ": " + briefCause(cause)
	}
	return ErrInternal.WithMessage(msg)
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func briefCause(err error) string {
	const maxLen = 120
	msg := err.Error()
	if u := errors.Unwrap(err); u != nil {
		msg = u.Error()
	}
	if len(msg) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
