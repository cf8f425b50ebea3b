// Package apperr classifies the errors the checkout flow can produce.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Draft validation failures. All of them are caught before any network call.
var (
	ErrNoAddress       = errors.New("no delivery address selected")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrBadLineItem     = errors.New("line item is missing medicine or pharmacy")
	ErrBadQuantity     = errors.New("line item quantity must be at least 1")
	ErrNegativePrice   = errors.New("line item price must not be negative")
	ErrMixedPharmacies = errors.New("cart items span more than one pharmacy")
	ErrBadMethod       = errors.New("unsupported payment method")
)

// Rejected is a server-side validation failure on order submission.
// Message carries the server-provided text and is surfaced verbatim.
type Rejected struct {
	Message string
}

func (e *Rejected) Error() string {
	if e.Message == "" {
		return "order rejected"
	}
	return "order rejected: " + e.Message
}

// Transient wraps a network or timeout failure. The caller may retry,
// knowing that a retried submission risks creating a duplicate order.
type Transient struct {
	Err error
}

func (e *Transient) Error() string { return "transient: " + e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

// AsTransient wraps err unless it already is a Transient.
func AsTransient(err error) error {
	var t *Transient
	if errors.As(err, &t) {
		return err
	}
	return &Transient{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// IsValidation reports whether err is a local draft validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoAddress) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrBadLineItem) ||
		errors.Is(err, ErrBadQuantity) ||
		errors.Is(err, ErrNegativePrice) ||
		errors.Is(err, ErrMixedPharmacies) ||
		errors.Is(err, ErrBadMethod)
}

func Kind(err error) string {
	var rej *Rejected
	var tr *Transient

	switch {
	case err == nil:
		return ""

	case IsValidation(err):
		return "validation"

	case errors.As(err, &rej):
		return "rejected"

	case errors.As(err, &tr),
		errors.Is(err, context.DeadlineExceeded):
		return "transient"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	var rej *Rejected

	switch {
	case err == nil:
		return http.StatusOK

	case IsValidation(err), errors.As(err, &rej):
		return http.StatusBadRequest

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// Rejectedf builds a Rejected with a formatted message.
func Rejectedf(format string, args ...any) *Rejected {
	return &Rejected{Message: fmt.Sprintf(format, args...)}
}
