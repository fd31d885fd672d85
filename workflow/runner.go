package workflow

import (
	"context"
	"fmt"
	"time"

	"civic-portal/checkout"
	"civic-portal/models"
	"civic-portal/repository"
	"civic-portal/services"

	"go.uber.org/zap"
)

// Runner wires a Flow through the full payment workflow: fee calculation,
// order creation, the checkout session, and the post-confirmation side
// effect (append to the local application list or mark the grievance
// upgraded).
type Runner struct {
	payments   *services.PaymentService
	verifier   checkout.Verifier
	reconciler checkout.Reconciler
	provider   checkout.Provider
	apps       repository.ApplicationRepository
	logger     *zap.Logger
}

func NewRunner(
	payments *services.PaymentService,
	verifier checkout.Verifier,
	reconciler checkout.Reconciler,
	provider checkout.Provider,
	apps repository.ApplicationRepository,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		payments:   payments,
		verifier:   verifier,
		reconciler: reconciler,
		provider:   provider,
		apps:       apps,
		logger:     logger,
	}
}

// RunRequest starts a flow for a citizen.
type RunRequest struct {
	Flow        Flow
	Customer    services.Customer
	UserID      string
	BearerToken string
}

// RunResult reports where the flow ended up.
type RunResult struct {
	State         checkout.State
	Fees          models.FeeCalculation
	Order         *services.PaymentOrder
	PaymentID     string
	Status        string
	ReceiptNumber string
}

// Run executes the flow to completion (or dismissal). The checkout session
// blocks while the provider waits for the browser-side outcome, so callers
// pass a request-scoped context.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	fees, err := services.CalculateTotal(req.Flow.BaseFee)
	if err != nil {
		return nil, err
	}

	// Unique receipt per logical attempt; safe to reuse on a retry of the
	// same attempt, never across attempts.
	receipt := fmt.Sprintf("rcpt_%d", time.Now().UnixNano())

	order, err := r.payments.CreateOrder(ctx, services.CreateOrderRequest{
		Amount:        fees.TotalAmount * 100, // rupees to paise
		Currency:      "INR",
		Receipt:       receipt,
		Description:   req.Flow.Description,
		Customer:      req.Customer,
		ServiceType:   req.Flow.ServiceType,
		ServiceID:     req.Flow.RecordID,
		ApplicationID: req.Flow.RecordID,
		UserID:        req.UserID,
		Notes:         req.Flow.Notes,
	})
	if err != nil {
		return nil, err
	}

	session := checkout.NewSession(checkout.SessionParams{
		Order: checkout.CheckoutOrder{
			OrderID:     order.ID,
			Amount:      order.Amount,
			Currency:    order.Currency,
			KeyID:       order.KeyID,
			Name:        "Civic Portal",
			Description: req.Flow.Description,
			Prefill: checkout.Prefill{
				Name:    req.Customer.Name,
				Contact: req.Customer.Contact,
				Email:   req.Customer.Email,
			},
			Notes: req.Flow.Notes,
		},
		Fees:        fees,
		RecordID:    req.Flow.RecordID,
		ServiceType: req.Flow.ServiceType,
		BearerToken: req.BearerToken,
		Provider:    r.provider,
		Verifier:    r.verifier,
		Reconciler:  r.reconciler,
		Logger:      r.logger,
	})

	result, err := session.Proceed(ctx)
	out := &RunResult{
		State: session.State(),
		Fees:  fees,
		Order: order,
	}
	if err != nil {
		return out, err
	}

	if session.State() != checkout.StateConfirmation {
		// Dismissed: back at review, nothing charged, nothing recorded.
		return out, nil
	}

	out.PaymentID = session.PaymentID()
	out.Status = result.Status
	out.ReceiptNumber = result.ReceiptNumber
	r.applySideEffect(ctx, req, out)
	return out, nil
}

// applySideEffect persists the flow's local record after confirmation.
// Failures are logged only: the payment is already recorded and the local
// list heals on the next authoritative fetch.
func (r *Runner) applySideEffect(ctx context.Context, req RunRequest, res *RunResult) {
	status := models.ApplicationStatusPaid
	if res.Status == services.RecordStatusFallback {
		status = models.ApplicationStatusPendingSync
	}

	switch req.Flow.ServiceType {
	case ServiceTypeCertificate:
		app := &models.CertificateApplication{
			CertificateType: req.Flow.Notes["certificate_type"],
			ApplicantName:   req.Customer.Name,
			UserID:          req.UserID,
			Status:          status,
			ReceiptNumber:   &res.ReceiptNumber,
			PaymentID:       &res.PaymentID,
		}
		if form, ok := req.Flow.Notes["form_data"]; ok {
			app.FormDataJSON = &form
		}
		if err := r.apps.CreateApplication(ctx, app); err != nil {
			r.logger.Error("Failed to append local application record",
				zap.String("payment_id", res.PaymentID),
				zap.Error(err),
			)
		}

	case ServiceTypeGrievanceUpgrade:
		up := &models.GrievanceUpgrade{
			GrievanceID:   req.Flow.RecordID,
			UserID:        req.UserID,
			Priority:      models.GrievancePriorityHigh,
			Status:        status,
			ReceiptNumber: &res.ReceiptNumber,
			PaymentID:     &res.PaymentID,
		}
		if err := r.apps.CreateGrievanceUpgrade(ctx, up); err != nil {
			r.logger.Error("Failed to mark grievance upgraded",
				zap.String("grievance_id", req.Flow.RecordID),
				zap.Error(err),
			)
		}
	}
}
