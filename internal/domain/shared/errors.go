package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so detailed variants
// built with NewDomainError still match the sentinel values below.
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

// Error codes
const (
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConcurrency        = "CONCURRENCY_CONFLICT"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeBundleNotFound     = "BUNDLE_NOT_FOUND"
	CodeAlreadyCancelled   = "ALREADY_CANCELLED"
	CodeEmptyOrder         = "EMPTY_ORDER"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeNegativePayment    = "NEGATIVE_PAYMENT"
	CodeDuplicateComponent = "DUPLICATE_COMPONENT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrBundleNotFound      = NewDomainError(CodeBundleNotFound, "Product is flagged as a bundle but has no bundle definition")
	ErrAlreadyCancelled    = NewDomainError(CodeAlreadyCancelled, "Item is already cancelled")
	ErrEmptyOrder          = NewDomainError(CodeEmptyOrder, "An Order must contain at least one item")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Operation not allowed in current state")
	ErrNegativePayment     = NewDomainError(CodeNegativePayment, "Paid amount must be between zero and the order total")
	ErrDuplicateComponent  = NewDomainError(CodeDuplicateComponent, "Duplicate components are not allowed in the same bundle.")
)

// InsufficientStock builds a detailed INSUFFICIENT_STOCK error for one counter of a product.
func InsufficientStock(productName, counter string, requested, available int) *DomainError {
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("Insufficient %s for %s: requested %d, available %d", counter, productName, requested, available))
}

// InvalidInput builds an INVALID_INPUT error with a specific message.
func InvalidInput(message string) *DomainError {
	return NewDomainError(CodeInvalidInput, message)
}

// InvalidTransition builds an INVALID_TRANSITION error with a specific message.
func InvalidTransition(message string) *DomainError {
	return NewDomainError(CodeInvalidTransition, message)
}
