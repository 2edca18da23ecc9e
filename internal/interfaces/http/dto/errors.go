package dto

import "net/http"

// API error codes returned in the response envelope.
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeServiceUnavailable is used when a backing store cannot be reached
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	// ErrCodeRateLimited is used when a client exceeds its request rate
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// Validation and input error codes
const (
	ErrCodeValidation     = "ERR_VALIDATION"
	ErrCodeBadRequest     = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput   = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON    = "ERR_INVALID_JSON"
	ErrCodeInvalidID      = "ERR_INVALID_ID"
	ErrCodeRequestTooBig  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeInvalidIdemKey = "ERR_INVALID_IDEMPOTENCY_KEY"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeConstraintViolation = "ERR_CONSTRAINT_VIOLATION"
	// ErrCodeDuplicateRequest is returned when an Idempotency-Key was already used
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// Ledger rule error codes
const (
	ErrCodeInvalidAmount       = "ERR_INVALID_AMOUNT"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"
	ErrCodeBalanceBelowZero    = "ERR_BALANCE_BELOW_ZERO"
	ErrCodeInvalidInvoiceType  = "ERR_INVALID_INVOICE_TYPE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimited:        http.StatusTooManyRequests,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodeInvalidID:          http.StatusBadRequest,
	ErrCodeInvalidIdemKey:     http.StatusBadRequest,
	ErrCodeInvalidInvoiceType: http.StatusBadRequest,
	ErrCodeRequestTooBig:      http.StatusRequestEntityTooLarge,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeConstraintViolation: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,

	// Ledger rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidAmount:       http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,
	ErrCodeBalanceBelowZero:    http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeAlreadyExists,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_AMOUNT":          ErrCodeInvalidAmount,
	"INSUFFICIENT_BALANCE":    ErrCodeInsufficientBalance,
	"BALANCE_BELOW_ZERO":      ErrCodeBalanceBelowZero,
	"INVALID_INVOICE_TYPE":    ErrCodeInvalidInvoiceType,
	"CONCURRENT_MODIFICATION": ErrCodeConcurrencyConflict,
	"CONSTRAINT_VIOLATION":    ErrCodeConstraintViolation,
	"INTERNAL_ERROR":          ErrCodeInternal,
	"INVALID_CUSTOMER":        ErrCodeInvalidInput,
	"INVALID_NAME":            ErrCodeValidation,
	"INVALID_EMAIL":           ErrCodeValidation,
	"INVALID_LINE":            ErrCodeValidation,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Codes already in ERR_ form are returned as-is; unknown codes become ERR_UNKNOWN.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeUnknown
}
