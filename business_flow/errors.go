// Package businessflow contains the business logic for the experiment engine.
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Test-related errors
	ErrTestNotFound            = errors.New("test not found")
	ErrTestNotActive           = errors.New("test is not active")
	ErrUnknownTest             = errors.New("unknown test id")
	ErrTestImagesRequired      = errors.New("both base and test image lists must be non-empty")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// Event-related errors
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidCase      = errors.New("invalid case")
	ErrSessionRequired  = errors.New("session id is required")
	ErrProductRequired  = errors.New("product id is required")

	// Tenant-related errors
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantUnmapped = errors.New("no tenant could be resolved for the product")

	// Statistics-related errors
	ErrInvalidDateRange = errors.New("invalid date range")
)

// BusinessError wraps a flow failure with a stable machine-readable code
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsUnknownTest(err error) bool {
	return errors.Is(err, ErrUnknownTest) || errors.Is(err, ErrTestNotFound)
}

func IsTestNotActive(err error) bool {
	return errors.Is(err, ErrTestNotActive)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidEventType) ||
		errors.Is(err, ErrInvalidCase) ||
		errors.Is(err, ErrSessionRequired) ||
		errors.Is(err, ErrProductRequired) ||
		errors.Is(err, ErrUnknownTest)
}

func IsUnknownTenant(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}
