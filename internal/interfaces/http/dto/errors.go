package dto

import (
	"net/http"

	"github.com/erp/orderledger/internal/domain/shared"
)

// Transport error codes. Domain failures keep the code of their
// shared.DomainError.
const (
	ErrCodeInternal         = "ERR_INTERNAL"
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnavailable      = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeDuplicateRequest: http.StatusConflict,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:      http.StatusServiceUnavailable,

	// Caller-correctable business rule violations
	shared.CodeInsufficientStock: http.StatusUnprocessableEntity,
	shared.CodeNegativePayment:   http.StatusUnprocessableEntity,
	shared.CodeEmptyOrder:        http.StatusUnprocessableEntity,
	shared.CodeBundleNotFound:    http.StatusUnprocessableEntity,

	// State conflicts
	shared.CodeAlreadyCancelled:   http.StatusConflict,
	shared.CodeInvalidTransition:  http.StatusConflict,
	shared.CodeConcurrency:        http.StatusConflict,
	shared.CodeDuplicateComponent: http.StatusConflict,
	shared.CodeAlreadyExists:      http.StatusConflict,

	shared.CodeNotFound:     http.StatusNotFound,
	shared.CodeInvalidInput: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
