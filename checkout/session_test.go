package checkout_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"civic-portal/checkout"
	"civic-portal/services"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const keySecret = "test_key_secret"

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ---- scripted provider ----

type scriptedProvider struct {
	results []checkout.Result
	errs    []error
	calls   int
}

func (p *scriptedProvider) Open(_ context.Context, _ checkout.CheckoutOrder) (checkout.Result, error) {
	i := p.calls
	p.calls++
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	var res checkout.Result
	if i < len(p.results) {
		res = p.results[i]
	}
	return res, err
}

// ---- mock reconciler ----

type mockReconciler struct {
	result  *services.RecordPaymentResult
	err     error
	calls   int
	lastReq services.RecordPaymentRequest
}

func (m *mockReconciler) RecordPayment(_ context.Context, req services.RecordPaymentRequest) (*services.RecordPaymentResult, error) {
	m.calls++
	m.lastReq = req
	return m.result, m.err
}

// ---- helpers ----

func newSession(provider checkout.Provider, reconciler *mockReconciler) *checkout.Session {
	verifier, _ := services.NewSignatureService(keySecret, "whsec")
	fees, _ := services.CalculateTotal(50)
	return checkout.NewSession(checkout.SessionParams{
		Order: checkout.CheckoutOrder{
			OrderID:  "order_1",
			Amount:   fees.TotalAmount * 100,
			Currency: "INR",
			KeyID:    "rzp_test_key",
		},
		Fees:        fees,
		RecordID:    "APP-1",
		ServiceType: "certificate",
		BearerToken: "token",
		Provider:    provider,
		Verifier:    verifier,
		Reconciler:  reconciler,
		Logger:      zap.NewNop(),
	})
}

// ---- tests ----

func TestSession_HappyPath(t *testing.T) {
	provider := &scriptedProvider{results: []checkout.Result{{
		Outcome:   checkout.OutcomeCompleted,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign("order_1", "pay_1"),
	}}}
	reconciler := &mockReconciler{result: &services.RecordPaymentResult{
		Status:        services.RecordStatusUpdated,
		ReceiptNumber: "BK-1",
	}}
	s := newSession(provider, reconciler)

	assert.Equal(t, checkout.StateReview, s.State())
	assert.Equal(t, 71, s.Fees().TotalAmount) // 50 base + 10 fee + 11 tax

	result, err := s.Proceed(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, checkout.StateConfirmation, s.State())
	assert.Equal(t, "BK-1", result.ReceiptNumber)
	assert.Equal(t, "pay_1", s.PaymentID())
	assert.Equal(t, 1, reconciler.calls)
	assert.True(t, reconciler.lastReq.Verified)
	assert.Equal(t, 7100, reconciler.lastReq.Amount)
}

func TestSession_DismissReturnsToReview(t *testing.T) {
	provider := &scriptedProvider{results: []checkout.Result{{Outcome: checkout.OutcomeDismissed, OrderID: "order_1"}}}
	reconciler := &mockReconciler{}
	s := newSession(provider, reconciler)

	result, err := s.Proceed(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, checkout.StateReview, s.State())
	assert.NoError(t, s.LastError())
	assert.Equal(t, 0, reconciler.calls)
}

func TestSession_DeclineStaysInPayment(t *testing.T) {
	provider := &scriptedProvider{results: []checkout.Result{{
		Outcome:       checkout.OutcomeFailed,
		OrderID:       "order_1",
		DeclineReason: "insufficient funds",
	}}}
	reconciler := &mockReconciler{}
	s := newSession(provider, reconciler)

	result, err := s.Proceed(context.Background())

	assert.Nil(t, result)
	assert.Error(t, err)
	se, ok := err.(*services.ServiceError)
	assert.True(t, ok)
	assert.Equal(t, services.CodePaymentDeclined, se.Code)
	assert.Equal(t, checkout.StatePayment, s.State())
	assert.Equal(t, 0, reconciler.calls)
}

func TestSession_BadSignatureStaysInPayment(t *testing.T) {
	provider := &scriptedProvider{results: []checkout.Result{{
		Outcome:   checkout.OutcomeCompleted,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: "deadbeef",
	}}}
	reconciler := &mockReconciler{}
	s := newSession(provider, reconciler)

	result, err := s.Proceed(context.Background())

	assert.Nil(t, result)
	assert.Error(t, err)
	se, ok := err.(*services.ServiceError)
	assert.True(t, ok)
	assert.Equal(t, services.CodeVerificationFailed, se.Code)
	assert.Equal(t, checkout.StatePayment, s.State())
	// A verification failure must never reach reconciliation.
	assert.Equal(t, 0, reconciler.calls)
}

func TestSession_ProviderUnavailableRetryable(t *testing.T) {
	good := checkout.Result{
		Outcome:   checkout.OutcomeCompleted,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign("order_1", "pay_1"),
	}
	provider := &scriptedProvider{
		errs:    []error{checkout.ErrProviderUnavailable, nil},
		results: []checkout.Result{{}, good},
	}
	reconciler := &mockReconciler{result: &services.RecordPaymentResult{Status: services.RecordStatusUpdated}}
	s := newSession(provider, reconciler)

	_, err := s.Proceed(context.Background())
	assert.ErrorIs(t, err, checkout.ErrProviderUnavailable)
	assert.Equal(t, checkout.StatePayment, s.State())
	assert.ErrorIs(t, s.LastError(), checkout.ErrProviderUnavailable)

	result, err := s.Proceed(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, checkout.StateConfirmation, s.State())
}

func TestSession_ReconciliationRunsOnce(t *testing.T) {
	good := checkout.Result{
		Outcome:   checkout.OutcomeCompleted,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign("order_1", "pay_1"),
	}
	provider := &scriptedProvider{results: []checkout.Result{good, good}}
	reconciler := &mockReconciler{result: &services.RecordPaymentResult{
		Status:        services.RecordStatusFallback,
		ReceiptNumber: "RCPT1756710000",
	}}
	s := newSession(provider, reconciler)

	first, err := s.Proceed(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, reconciler.calls)

	// Re-entering from confirmation is rejected; reconciliation stays at one.
	_, err = s.Proceed(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, reconciler.calls)
	assert.Equal(t, first, s.Result())
}

func TestSession_CancelBeforeConfirmation(t *testing.T) {
	s := newSession(&scriptedProvider{}, &mockReconciler{})

	assert.NoError(t, s.Cancel())
	assert.Equal(t, checkout.StateCancelled, s.State())

	_, err := s.Proceed(context.Background())
	assert.Error(t, err)
}

func TestSession_CancelAfterConfirmationRejected(t *testing.T) {
	provider := &scriptedProvider{results: []checkout.Result{{
		Outcome:   checkout.OutcomeCompleted,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign("order_1", "pay_1"),
	}}}
	reconciler := &mockReconciler{result: &services.RecordPaymentResult{Status: services.RecordStatusUpdated}}
	s := newSession(provider, reconciler)

	_, err := s.Proceed(context.Background())
	assert.NoError(t, err)

	assert.Error(t, s.Cancel())
	assert.Equal(t, checkout.StateConfirmation, s.State())
}

func TestHostedProvider_DeliverCompletes(t *testing.T) {
	h := checkout.NewHostedProvider()
	order := checkout.CheckoutOrder{OrderID: "order_1"}

	done := make(chan checkout.Result, 1)
	go func() {
		res, err := h.Open(context.Background(), order)
		assert.NoError(t, err)
		done <- res
	}()

	delivered := false
	for i := 0; i < 100; i++ {
		if h.Deliver("order_1", checkout.Result{Outcome: checkout.OutcomeCompleted, OrderID: "order_1", PaymentID: "pay_1"}) {
			delivered = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, delivered)

	res := <-done
	assert.Equal(t, checkout.OutcomeCompleted, res.Outcome)
	assert.Equal(t, "pay_1", res.PaymentID)
}

func TestHostedProvider_ContextExpiryIsDismissal(t *testing.T) {
	h := checkout.NewHostedProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := h.Open(ctx, checkout.CheckoutOrder{OrderID: "order_1"})

	assert.NoError(t, err)
	assert.Equal(t, checkout.OutcomeDismissed, res.Outcome)
}

func TestHostedProvider_LateDeliveryDropped(t *testing.T) {
	h := checkout.NewHostedProvider()
	assert.False(t, h.Deliver("order_unknown", checkout.Result{Outcome: checkout.OutcomeCompleted}))
}
