package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civic-portal/aws"
	"civic-portal/clients"
	"civic-portal/models"
	"civic-portal/repository"

	"go.uber.org/zap"
)

// Reconciliation result statuses.
const (
	RecordStatusUpdated  = "updated"
	RecordStatusFallback = "fallback"
)

// BackendReconciler is the outbound reconciliation call; satisfied by
// clients.BackendClient and by test fakes.
type BackendReconciler interface {
	RecordPayment(ctx context.Context, bearerToken string, req clients.ReconcileRequest) (*clients.ReconcileResponse, error)
}

// RecordPaymentRequest reconciles a backend record with a verified payment.
type RecordPaymentRequest struct {
	RecordID    string
	PaymentID   string
	OrderID     string
	Amount      int
	ServiceType string
	Verified    bool
	BearerToken string
}

// RecordPaymentResult reports how the payment was recorded. Status
// "fallback" means the money moved and a local receipt was issued while the
// backend catches up; it is still a success for the citizen.
type RecordPaymentResult struct {
	Status        string `json:"status"`
	ReceiptNumber string `json:"receipt_number"`
}

// ReconciliationService updates the authoritative backend record after a
// verified payment, degrading to a locally confirmed receipt when the
// backend is unreachable.
type ReconciliationService struct {
	backend  BackendReconciler
	repo     repository.PaymentRepository
	sns      aws.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewReconciliationService(backend BackendReconciler, repo repository.PaymentRepository, sns aws.SNSPublisher, topicArn string, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{
		backend:  backend,
		repo:     repo,
		sns:      sns,
		topicArn: topicArn,
		logger:   logger,
	}
}

// RecordPayment marks the record paid. Signature verification must have
// succeeded before this is called; unverified requests are refused, backend
// availability notwithstanding.
func (s *ReconciliationService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	if !req.Verified {
		return nil, ErrNotVerified()
	}
	if req.PaymentID == "" {
		return nil, ErrMissingField("payment_id")
	}
	if req.OrderID == "" {
		return nil, ErrMissingField("order_id")
	}

	resp, err := s.backend.RecordPayment(ctx, req.BearerToken, clients.ReconcileRequest{
		RecordID:      req.RecordID,
		PaymentID:     req.PaymentID,
		OrderID:       req.OrderID,
		PaymentStatus: models.PaymentStatusPaid,
		Amount:        req.Amount,
		ServiceType:   req.ServiceType,
		RazorpayData: map[string]string{
			"razorpay_order_id":   req.OrderID,
			"razorpay_payment_id": req.PaymentID,
		},
	})
	if err == nil {
		s.markPaid(ctx, req, resp.ReceiptNumber, false)
		s.publishEvent(ctx, req, "payment_recorded", resp.ReceiptNumber)
		return &RecordPaymentResult{Status: RecordStatusUpdated, ReceiptNumber: resp.ReceiptNumber}, nil
	}

	// A 4xx is a permanent refusal (bad record id, duplicate, malformed
	// request); retrying or issuing a local receipt would paper over a
	// request that can never succeed. Only outages degrade to the fallback.
	var be *clients.BackendError
	if errors.As(err, &be) && !be.Temporary() {
		s.logger.Error("Backend rejected payment record",
			zap.String("order_id", req.OrderID),
			zap.Int("status_code", be.StatusCode),
			zap.Error(err),
		)
		return nil, ErrBackendRejected(err)
	}

	// The payment itself already succeeded; the citizen must not be told it
	// failed because bookkeeping lags. Issue a local receipt and queue the
	// record for out-of-band sync.
	s.logger.Warn("Backend unavailable during reconciliation, falling back to local receipt",
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", req.PaymentID),
		zap.Error(err),
	)

	receipt := fmt.Sprintf("RCPT%d", time.Now().Unix())
	s.markPaid(ctx, req, receipt, true)
	s.publishEvent(ctx, req, "payment_recorded_fallback", receipt)
	return &RecordPaymentResult{Status: RecordStatusFallback, ReceiptNumber: receipt}, nil
}

func (s *ReconciliationService) markPaid(ctx context.Context, req RecordPaymentRequest, receipt string, pendingSync bool) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.PaymentStatusPaid,
		"receipt_number": receipt,
		"pending_sync":   pendingSync,
		"paid_at":        &now,
	}
	if err := s.repo.UpdateByOrderID(ctx, req.OrderID, updates); err != nil {
		s.logger.Error("Failed to update payment record after reconciliation",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
	}
}

func (s *ReconciliationService) publishEvent(ctx context.Context, req RecordPaymentRequest, eventType, receipt string) {
	if s.sns == nil || s.topicArn == "" {
		return
	}
	payload, _ := json.Marshal(models.PaymentEvent{
		Type:          eventType,
		OrderID:       req.OrderID,
		PaymentID:     req.PaymentID,
		ServiceType:   req.ServiceType,
		ServiceID:     req.RecordID,
		Amount:        req.Amount,
		ReceiptNumber: receipt,
		Timestamp:     time.Now().UTC(),
	})
	if err := s.sns.Publish(ctx, s.topicArn, payload); err != nil {
		s.logger.Error("Failed to publish payment event", zap.Error(err))
	}
}
