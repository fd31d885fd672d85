package workflow_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"civic-portal/checkout"
	"civic-portal/models"
	"civic-portal/services"
	"civic-portal/workflow"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const keySecret = "test_key_secret"

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ---- mock gateway ----

type mockGateway struct {
	orderID string
	err     error
}

func (m *mockGateway) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	return map[string]interface{}{"id": m.orderID, "status": "created"}, nil
}

// ---- mock payment repository ----

type mockPaymentRepo struct {
	created *models.Payment
}

func (m *mockPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	m.created = p
	return nil
}
func (m *mockPaymentRepo) FindByOrderID(_ context.Context, _ string) (*models.Payment, error) {
	return m.created, nil
}
func (m *mockPaymentRepo) FindByPaymentID(_ context.Context, _ string) (*models.Payment, error) {
	return m.created, nil
}
func (m *mockPaymentRepo) UpdateByOrderID(_ context.Context, _ string, _ map[string]interface{}) error {
	return nil
}
func (m *mockPaymentRepo) ListPendingSync(_ context.Context, _ int) ([]models.Payment, error) {
	return nil, nil
}

// ---- mock application repository ----

type mockAppRepo struct {
	app     *models.CertificateApplication
	upgrade *models.GrievanceUpgrade
}

func (m *mockAppRepo) CreateApplication(_ context.Context, app *models.CertificateApplication) error {
	m.app = app
	return nil
}
func (m *mockAppRepo) ListApplicationsByUser(_ context.Context, _ string) ([]models.CertificateApplication, error) {
	return nil, nil
}
func (m *mockAppRepo) CreateGrievanceUpgrade(_ context.Context, up *models.GrievanceUpgrade) error {
	m.upgrade = up
	return nil
}
func (m *mockAppRepo) FindUpgradeByGrievanceID(_ context.Context, _ string) (*models.GrievanceUpgrade, error) {
	return m.upgrade, nil
}

// ---- scripted checkout provider ----

type scriptedProvider struct {
	outcome checkout.Outcome
	decline string
}

func (p *scriptedProvider) Open(_ context.Context, order checkout.CheckoutOrder) (checkout.Result, error) {
	res := checkout.Result{Outcome: p.outcome, OrderID: order.OrderID, DeclineReason: p.decline}
	if p.outcome == checkout.OutcomeCompleted {
		res.PaymentID = "pay_1"
		res.Signature = sign(order.OrderID, "pay_1")
	}
	return res, nil
}

// ---- mock reconciler ----

type mockReconciler struct {
	result  *services.RecordPaymentResult
	lastReq services.RecordPaymentRequest
	calls   int
}

func (m *mockReconciler) RecordPayment(_ context.Context, req services.RecordPaymentRequest) (*services.RecordPaymentResult, error) {
	m.calls++
	m.lastReq = req
	return m.result, nil
}

// ---- helpers ----

func newRunner(gateway *mockGateway, provider checkout.Provider, reconciler *mockReconciler, apps *mockAppRepo) (*workflow.Runner, *mockPaymentRepo) {
	verifier, _ := services.NewSignatureService(keySecret, "whsec")
	repo := &mockPaymentRepo{}
	payments := services.NewPaymentService(gateway, "rzp_test_key", verifier, repo, zap.NewNop())
	return workflow.NewRunner(payments, verifier, reconciler, provider, apps, zap.NewNop()), repo
}

func certificateRequest(t *testing.T) workflow.RunRequest {
	t.Helper()
	flow, err := workflow.CertificateFlow(models.CertificateBirth, "APP-1", map[string]string{"child_name": "Meera"})
	assert.NoError(t, err)
	return workflow.RunRequest{
		Flow:        flow,
		Customer:    services.Customer{Name: "Asha Rao", Contact: "9876543210"},
		UserID:      "user-1",
		BearerToken: "token",
	}
}

// ---- tests ----

func TestRun_CertificateHappyPath(t *testing.T) {
	gateway := &mockGateway{orderID: "order_1"}
	provider := &scriptedProvider{outcome: checkout.OutcomeCompleted}
	reconciler := &mockReconciler{result: &services.RecordPaymentResult{
		Status:        services.RecordStatusUpdated,
		ReceiptNumber: "BK-1",
	}}
	apps := &mockAppRepo{}
	runner, repo := newRunner(gateway, provider, reconciler, apps)

	result, err := runner.Run(context.Background(), certificateRequest(t))

	assert.NoError(t, err)
	assert.Equal(t, checkout.StateConfirmation, result.State)
	// Birth certificate: 50 base + 10 fee + 11 tax = 71 rupees = 7100 paise.
	assert.Equal(t, 71, result.Fees.TotalAmount)
	assert.Equal(t, 7100, result.Order.Amount)
	assert.Equal(t, "BK-1", result.ReceiptNumber)
	assert.Equal(t, 1, reconciler.calls)
	assert.True(t, reconciler.lastReq.Verified)

	// Local record appended with the paid status and receipt.
	assert.NotNil(t, apps.app)
	assert.Equal(t, models.ApplicationStatusPaid, apps.app.Status)
	assert.Equal(t, models.CertificateBirth, apps.app.CertificateType)
	assert.Equal(t, "BK-1", *apps.app.ReceiptNumber)

	// Order persisted with notes carrying the flow context.
	assert.NotNil(t, repo.created)
	assert.Equal(t, workflow.ServiceTypeCertificate, repo.created.ServiceType)
}

func TestRun_FallbackMarksPendingSync(t *testing.T) {
	gateway := &mockGateway{orderID: "order_1"}
	provider := &scriptedProvider{outcome: checkout.OutcomeCompleted}
	reconciler := &mockReconciler{result: &services.RecordPaymentResult{
		Status:        services.RecordStatusFallback,
		ReceiptNumber: "RCPT1756710000",
	}}
	apps := &mockAppRepo{}
	runner, _ := newRunner(gateway, provider, reconciler, apps)

	result, err := runner.Run(context.Background(), certificateRequest(t))

	assert.NoError(t, err)
	assert.Equal(t, "RCPT1756710000", result.ReceiptNumber)
	assert.Equal(t, models.ApplicationStatusPendingSync, apps.app.Status)
}

func TestRun_DismissalRecordsNothing(t *testing.T) {
	gateway := &mockGateway{orderID: "order_1"}
	provider := &scriptedProvider{outcome: checkout.OutcomeDismissed}
	reconciler := &mockReconciler{}
	apps := &mockAppRepo{}
	runner, _ := newRunner(gateway, provider, reconciler, apps)

	result, err := runner.Run(context.Background(), certificateRequest(t))

	assert.NoError(t, err)
	assert.Equal(t, checkout.StateReview, result.State)
	assert.Empty(t, result.ReceiptNumber)
	assert.Equal(t, 0, reconciler.calls)
	assert.Nil(t, apps.app)
}

func TestRun_DeclineSurfacesError(t *testing.T) {
	gateway := &mockGateway{orderID: "order_1"}
	provider := &scriptedProvider{outcome: checkout.OutcomeFailed, decline: "card declined"}
	reconciler := &mockReconciler{}
	apps := &mockAppRepo{}
	runner, _ := newRunner(gateway, provider, reconciler, apps)

	result, err := runner.Run(context.Background(), certificateRequest(t))

	assert.Error(t, err)
	assert.Equal(t, checkout.StatePayment, result.State)
	assert.Equal(t, 0, reconciler.calls)
	assert.Nil(t, apps.app)
}

func TestRun_GatewayDownNoSession(t *testing.T) {
	gateway := &mockGateway{err: errors.New("gateway unreachable")}
	reconciler := &mockReconciler{}
	apps := &mockAppRepo{}
	runner, _ := newRunner(gateway, &scriptedProvider{}, reconciler, apps)

	result, err := runner.Run(context.Background(), certificateRequest(t))

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, reconciler.calls)
}

func TestRun_GrievanceUpgrade(t *testing.T) {
	gateway := &mockGateway{orderID: "order_1"}
	provider := &scriptedProvider{outcome: checkout.OutcomeCompleted}
	reconciler := &mockReconciler{result: &services.RecordPaymentResult{
		Status:        services.RecordStatusUpdated,
		ReceiptNumber: "BK-9",
	}}
	apps := &mockAppRepo{}
	runner, _ := newRunner(gateway, provider, reconciler, apps)

	result, err := runner.Run(context.Background(), workflow.RunRequest{
		Flow:        workflow.GrievanceUpgradeFlow("GRV-42"),
		Customer:    services.Customer{Name: "Asha Rao", Contact: "9876543210"},
		UserID:      "user-1",
		BearerToken: "token",
	})

	assert.NoError(t, err)
	// Upgrade fee: 100 base + 10 fee + 20 tax = 130 rupees.
	assert.Equal(t, 130, result.Fees.TotalAmount)
	assert.NotNil(t, apps.upgrade)
	assert.Equal(t, "GRV-42", apps.upgrade.GrievanceID)
	assert.Equal(t, models.GrievancePriorityHigh, apps.upgrade.Priority)
	assert.Equal(t, models.ApplicationStatusPaid, apps.upgrade.Status)
}
