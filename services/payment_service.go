package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"civic-portal/models"
	"civic-portal/repository"

	"go.uber.org/zap"
)

// Customer is the payer prefilled into the checkout UI.
type Customer struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email,omitempty"`
}

// CreateOrderRequest describes what is being paid for. Receipt is the
// caller's idempotency key: the gateway call is only safe to retry when the
// same receipt is reused for the same logical transaction attempt.
type CreateOrderRequest struct {
	Amount        int // in paise
	Currency      string
	Receipt       string
	Description   string
	Customer      Customer
	ServiceType   string
	ServiceID     string
	ApplicationID string
	UserID        string
	Notes         map[string]string
}

// PaymentOrder is the created gateway order returned to the client, plus the
// browser-safe key id needed to open checkout.
type PaymentOrder struct {
	ID       string `json:"order_id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	KeyID    string `json:"key_id"`
}

// PaymentService creates gateway orders and tracks their verification state.
type PaymentService struct {
	gateway  PaymentGateway
	keyID    string
	verifier *SignatureService
	repo     repository.PaymentRepository
	logger   *zap.Logger
}

func NewPaymentService(gateway PaymentGateway, keyID string, verifier *SignatureService, repo repository.PaymentRepository, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		gateway:  gateway,
		keyID:    keyID,
		verifier: verifier,
		repo:     repo,
		logger:   logger,
	}
}

// CreateOrder validates the request, creates the order with the gateway and
// persists the portal-side record. A gateway failure is a hard failure:
// fabricating a local order id would let a client open checkout with no real
// backing order.
func (s *PaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*PaymentOrder, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount(req.Amount)
	}
	if req.Currency == "" {
		return nil, ErrMissingField("currency")
	}
	if req.Receipt == "" {
		return nil, ErrMissingField("receipt")
	}
	if req.Customer.Name == "" {
		return nil, ErrMissingField("customer.name")
	}
	if req.Customer.Contact == "" {
		return nil, ErrMissingField("customer.contact")
	}

	notes := map[string]interface{}{
		"service_type":     req.ServiceType,
		"service_id":       req.ServiceID,
		"application_id":   req.ApplicationID,
		"user_id":          req.UserID,
		"customer_name":    req.Customer.Name,
		"customer_contact": req.Customer.Contact,
	}
	for k, v := range req.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	body, err := s.gateway.CreateOrder(data)
	if err != nil {
		s.logger.Error("Gateway order creation failed",
			zap.String("receipt", req.Receipt),
			zap.Error(err),
		)
		return nil, ErrOrderCreationFailed(err)
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		return nil, ErrOrderCreationFailed(errGatewayNoOrderID)
	}
	status, _ := body["status"].(string)
	if status == "" {
		status = models.PaymentStatusCreated
	}

	notesJSON, _ := json.Marshal(notes)
	notesStr := string(notesJSON)
	payment := &models.Payment{
		RazorpayOrderID: orderID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Receipt:         req.Receipt,
		Status:          status,
		ServiceType:     req.ServiceType,
		ServiceID:       req.ServiceID,
		ApplicationID:   req.ApplicationID,
		UserID:          req.UserID,
		NotesJSON:       &notesStr,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		s.logger.Error("Failed to save payment record",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeOrderCreationFailed,
			Message:    "failed to save payment record",
			Err:        err,
		}
	}

	s.logger.Info("Payment order created",
		zap.String("order_id", orderID),
		zap.Int("amount", req.Amount),
		zap.String("service_type", req.ServiceType),
	)

	return &PaymentOrder{
		ID:       orderID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   status,
		KeyID:    s.keyID,
	}, nil
}

// ConfirmPayment verifies the checkout-result triple and, on success, marks
// the payment record verified. Verification is stateless and idempotent;
// re-confirming the same triple yields the same outcome.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Payment, error) {
	if orderID == "" {
		return nil, ErrMissingField("razorpay_order_id")
	}
	if paymentID == "" {
		return nil, ErrMissingField("razorpay_payment_id")
	}
	if signature == "" {
		return nil, ErrMissingField("razorpay_signature")
	}

	if !s.verifier.VerifyPayment(orderID, paymentID, signature) {
		s.logger.Warn("Payment signature mismatch",
			zap.String("order_id", orderID),
			zap.String("payment_id", paymentID),
		)
		return nil, ErrVerificationFailed()
	}

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if models.TerminalPaymentStatuses[payment.Status] {
		// The webhook already settled this payment; a late browser verify
		// must not drag a terminal record back to attempted.
		return payment, nil
	}

	now := time.Now()
	if err := s.repo.UpdateByOrderID(ctx, orderID, map[string]interface{}{
		"razorpay_payment_id": paymentID,
		"status":              models.PaymentStatusAttempted,
		"verified_at":         &now,
	}); err != nil {
		s.logger.Error("Failed to mark payment verified",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	payment, err = s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

var errGatewayNoOrderID = errors.New("gateway returned no order id")
