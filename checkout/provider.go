package checkout

import (
	"context"
	"errors"
)

// ErrProviderUnavailable means the gateway's checkout could not be opened
// (script load failure). Retryable: the session stays in the payment step
// and Proceed may be called again.
var ErrProviderUnavailable = errors.New("checkout provider unavailable")

// Outcome of one checkout attempt.
type Outcome int

const (
	// OutcomeCompleted: the user finished checkout; the result carries the
	// payment id and signature to verify.
	OutcomeCompleted Outcome = iota
	// OutcomeFailed: the gateway declined the payment.
	OutcomeFailed
	// OutcomeDismissed: the user closed the checkout without paying. No
	// charge was attempted; not an error.
	OutcomeDismissed
)

// Result folds the gateway's success/failure/dismiss callbacks into a single
// value, so the session transition logic is one switch.
type Result struct {
	Outcome   Outcome
	PaymentID string
	OrderID   string
	Signature string
	// DeclineReason is set for OutcomeFailed.
	DeclineReason string
}

// Prefill is the customer info shown in the checkout UI.
type Prefill struct {
	Name    string
	Contact string
	Email   string
}

// CheckoutOrder is everything the provider needs to open the gateway UI for
// an already-created order.
type CheckoutOrder struct {
	OrderID     string
	Amount      int // paise
	Currency    string
	KeyID       string
	Name        string
	Description string
	Prefill     Prefill
	Notes       map[string]string
}

// Provider opens the gateway checkout for an order and reports the outcome.
// The real implementation drives the browser-loaded gateway script; tests
// resolve immediately with a scripted result.
type Provider interface {
	Open(ctx context.Context, order CheckoutOrder) (Result, error)
}
