package checkout

import (
	"context"
	"sync"

	"civic-portal/models"
	"civic-portal/services"

	"go.uber.org/zap"
)

// Session states. A session moves review → payment → confirmation; dismissal
// returns it to review, cancellation ends it.
type State string

const (
	StateReview       State = "review"
	StatePayment      State = "payment"
	StateConfirmation State = "confirmation"
	StateCancelled    State = "cancelled"
)

// Verifier checks a checkout-result triple. Satisfied by
// services.SignatureService.
type Verifier interface {
	VerifyPayment(orderID, paymentID, signature string) bool
}

// Reconciler records a verified payment. Satisfied by
// services.ReconciliationService.
type Reconciler interface {
	RecordPayment(ctx context.Context, req services.RecordPaymentRequest) (*services.RecordPaymentResult, error)
}

// Session drives one payment flow for one order. It guards against
// concurrent checkout attempts for the same order and guarantees
// reconciliation runs exactly once even if the confirmation step re-enters.
type Session struct {
	mu sync.Mutex

	state       State
	order       CheckoutOrder
	fees        models.FeeCalculation
	recordID    string
	serviceType string
	token       string

	provider   Provider
	verifier   Verifier
	reconciler Reconciler
	logger     *zap.Logger

	opening    bool
	reconciled bool
	paymentID  string
	result     *services.RecordPaymentResult
	lastErr    error
}

// SessionParams bundles the collaborators and flow parameters for a session.
type SessionParams struct {
	Order       CheckoutOrder
	Fees        models.FeeCalculation
	RecordID    string
	ServiceType string
	BearerToken string
	Provider    Provider
	Verifier    Verifier
	Reconciler  Reconciler
	Logger      *zap.Logger
}

// NewSession starts a session in the review state, showing the fee breakdown
// and order summary.
func NewSession(p SessionParams) *Session {
	return &Session{
		state:       StateReview,
		order:       p.Order,
		fees:        p.Fees,
		recordID:    p.RecordID,
		serviceType: p.ServiceType,
		token:       p.BearerToken,
		provider:    p.Provider,
		verifier:    p.Verifier,
		reconciler:  p.Reconciler,
		logger:      p.Logger,
	}
}

// State returns the current step.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fees returns the breakdown displayed on the review step.
func (s *Session) Fees() models.FeeCalculation { return s.fees }

// Result returns the reconciliation result once the session confirmed.
func (s *Session) Result() *services.RecordPaymentResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// PaymentID returns the gateway payment id once the session confirmed.
func (s *Session) PaymentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentID
}

// LastError returns the error shown in the payment step's banner, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Cancel exits the whole flow. Only allowed before confirmation; a confirmed
// payment cannot be un-confirmed from the UI.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConfirmation {
		return errAlreadyConfirmed
	}
	if s.opening {
		return errCheckoutOpen
	}
	s.state = StateCancelled
	return nil
}

// Proceed advances the flow: opens the gateway checkout, waits for its
// outcome, verifies the signature and triggers reconciliation. Returns the
// reconciliation result on confirmation, nil on a silent dismiss.
func (s *Session) Proceed(ctx context.Context) (*services.RecordPaymentResult, error) {
	s.mu.Lock()
	if s.state != StateReview && s.state != StatePayment {
		state := s.state
		s.mu.Unlock()
		return nil, &services.ServiceError{
			StatusCode: 409,
			Code:       "INVALID_STATE",
			Message:    "cannot proceed from state " + string(state),
		}
	}
	if s.opening {
		// One checkout attempt per order at a time: the pay action stays
		// disabled while a gateway session is open.
		s.mu.Unlock()
		return nil, errCheckoutOpen
	}
	s.state = StatePayment
	s.opening = true
	s.lastErr = nil
	s.mu.Unlock()

	res, err := s.provider.Open(ctx, s.order)

	s.mu.Lock()
	s.opening = false
	if err != nil {
		// Script load failed; stay in payment with a retry control.
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	switch res.Outcome {
	case OutcomeDismissed:
		// No charge was attempted; return to review silently.
		s.state = StateReview
		s.mu.Unlock()
		return nil, nil

	case OutcomeFailed:
		declined := services.ErrPaymentDeclined(res.DeclineReason)
		s.lastErr = declined
		s.mu.Unlock()
		return nil, declined

	case OutcomeCompleted:
		if !s.verifier.VerifyPayment(res.OrderID, res.PaymentID, res.Signature) {
			// Potential tamper signal. No automatic retry; the user must
			// re-attempt payment, ideally against a fresh order.
			verr := services.ErrVerificationFailed()
			s.lastErr = verr
			s.mu.Unlock()
			s.logger.Warn("Checkout signature verification failed",
				zap.String("order_id", res.OrderID),
				zap.String("payment_id", res.PaymentID),
			)
			return nil, verr
		}

		s.state = StateConfirmation
		s.paymentID = res.PaymentID
		alreadyReconciled := s.reconciled
		s.reconciled = true
		s.mu.Unlock()

		if alreadyReconciled {
			return s.Result(), nil
		}

		result, recErr := s.reconciler.RecordPayment(ctx, services.RecordPaymentRequest{
			RecordID:    s.recordID,
			PaymentID:   res.PaymentID,
			OrderID:     res.OrderID,
			Amount:      s.order.Amount,
			ServiceType: s.serviceType,
			Verified:    true,
			BearerToken: s.token,
		})
		if recErr != nil {
			// Reconciliation degrades internally; an error here is a
			// programming fault, not a user-facing payment failure.
			s.logger.Error("Reconciliation failed after verified payment",
				zap.String("order_id", res.OrderID),
				zap.Error(recErr),
			)
			return nil, recErr
		}

		s.mu.Lock()
		s.result = result
		s.mu.Unlock()
		return result, nil
	}

	s.mu.Unlock()
	return nil, errUnknownOutcome
}
