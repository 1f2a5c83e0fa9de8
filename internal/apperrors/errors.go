// internal/apperrors/errors.go
package apperrors

import "fmt"

// Domain error taxonomy. Services return these; the handler layer maps them
// to HTTP status codes in one place.

// ValidationError covers empty carts, non-positive quantities and missing
// required fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing resource kind.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func NewNotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// MultiStoreViolation is returned when a cart mixes products from more than
// one store; an order never spans stores.
type MultiStoreViolation struct {
	Product string
}

func (e *MultiStoreViolation) Error() string {
	return fmt.Sprintf("product %q belongs to a different store; an order cannot span multiple stores", e.Product)
}

// InsufficientStock names the offending product.
type InsufficientStock struct {
	Product string
}

func (e *InsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Product)
}

// AuthenticationError covers bad or missing credentials and tokens.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func NewAuthentication(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

// AuthorizationError covers role mismatches, cross-tenant access and missing
// tenant context. Missing store context is always this error, never an empty
// query result.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func NewAuthorization(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// SignatureVerificationError rejects unauthenticated payment webhooks.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureVerificationError) Unwrap() error { return e.Err }
