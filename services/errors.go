package services

import (
	"fmt"
	"net/http"
)

// Error codes surfaced to callers. Verification failures and configuration
// errors must stay distinguishable from ordinary gateway declines: they need
// different remedies (contact support vs. retry payment).
const (
	CodeMissingField        = "MISSING_FIELD"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeOrderCreationFailed = "ORDER_CREATION_FAILED"
	CodeVerificationFailed  = "PAYMENT_VERIFICATION_FAILED"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeBackendRejected     = "BACKEND_REJECTED"
	CodePaymentDeclined     = "PAYMENT_DECLINED"
)

// ServiceError is a typed error with an HTTP status code and a stable
// machine-readable code.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ErrMissingField rejects a request before any network call is made.
func ErrMissingField(field string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeMissingField,
		Message:    "missing required field: " + field,
	}
}

// ErrInvalidAmount rejects non-positive base amounts.
func ErrInvalidAmount(amount int) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidAmount,
		Message:    fmt.Sprintf("invalid amount: %d", amount),
	}
}

// ErrOrderCreationFailed wraps a gateway or network failure during order
// creation. No local fallback order is ever fabricated for this case.
func ErrOrderCreationFailed(err error) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadGateway,
		Code:       CodeOrderCreationFailed,
		Message:    "failed to create payment order",
		Err:        err,
	}
}

// ErrVerificationFailed marks a signature mismatch. Treated as a potential
// tamper signal and never silently retried.
func ErrVerificationFailed() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeVerificationFailed,
		Message:    "payment signature verification failed",
	}
}

// ErrConfiguration marks a missing server secret. main treats this as fatal
// at boot so the feature is never reachable half-configured.
func ErrConfiguration(detail string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeConfiguration,
		Message:    "configuration error: " + detail,
	}
}

// ErrNotVerified guards the reconciliation entry point: recording a payment
// whose signature was never verified is refused outright. The fallback path
// is about backend availability, never about skipping verification.
func ErrNotVerified() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusConflict,
		Code:       CodeVerificationFailed,
		Message:    "payment not verified; refusing to record",
	}
}

// ErrBackendUnavailable marks a reconciliation call that failed after the
// payment itself already succeeded.
func ErrBackendUnavailable(err error) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeBackendUnavailable,
		Message:    "municipal backend unavailable",
		Err:        err,
	}
}

// ErrBackendRejected marks a permanent backend refusal of a reconciliation
// request (4xx). Retrying cannot succeed, so no local receipt is issued.
func ErrBackendRejected(err error) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       CodeBackendRejected,
		Message:    "municipal backend rejected the payment record",
		Err:        err,
	}
}

// ErrPaymentDeclined carries a gateway-reported decline reason. Retryable by
// re-opening checkout with a fresh order.
func ErrPaymentDeclined(reason string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusPaymentRequired,
		Code:       CodePaymentDeclined,
		Message:    "payment declined: " + reason,
	}
}
