package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"civic-portal/checkout"
	"civic-portal/middleware"
	"civic-portal/models"
	"civic-portal/repository"
	"civic-portal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentController exposes the payment workflow over HTTP: order creation,
// checkout-result verification, browser callback delivery and reconciliation.
type PaymentController struct {
	Payments *services.PaymentService
	Recon    *services.ReconciliationService
	Repo     repository.PaymentRepository
	Checkout *checkout.HostedProvider
	Logger   *zap.Logger
}

type createOrderRequest struct {
	BaseAmount    int               `json:"base_amount" binding:"required"`
	ServiceType   string            `json:"service_type" binding:"required"`
	ServiceID     string            `json:"service_id"`
	ApplicationID string            `json:"application_id"`
	Description   string            `json:"description"`
	Customer      services.Customer `json:"customer" binding:"required"`
	Notes         map[string]string `json:"notes"`
}

// CreateOrder computes the fee breakdown and creates a gateway order for it.
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fees, err := services.CalculateTotal(req.BaseAmount)
	if err != nil {
		pc.respondServiceError(c, err)
		return
	}

	order, err := pc.Payments.CreateOrder(c.Request.Context(), services.CreateOrderRequest{
		Amount:        fees.TotalAmount * 100, // rupees to paise
		Currency:      "INR",
		Receipt:       fmt.Sprintf("rcpt_%d", time.Now().UnixNano()),
		Description:   req.Description,
		Customer:      req.Customer,
		ServiceType:   req.ServiceType,
		ServiceID:     req.ServiceID,
		ApplicationID: req.ApplicationID,
		UserID:        middleware.GetUserID(c),
		Notes:         req.Notes,
	})
	if err != nil {
		pc.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"receipt":  order.Receipt,
		"key_id":   order.KeyID,
		"fees":     fees,
	})
}

type verifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// VerifyPayment checks the checkout-result signature. On success the waiting
// checkout session (if any) is resumed with the completed result.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := pc.Payments.ConfirmPayment(c.Request.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		var se *services.ServiceError
		if errors.As(err, &se) && se.Code == services.CodeVerificationFailed {
			c.JSON(se.StatusCode, gin.H{"verified": false, "error": se.Message, "code": se.Code})
			return
		}
		pc.respondServiceError(c, err)
		return
	}

	pc.Checkout.Deliver(req.RazorpayOrderID, checkout.Result{
		Outcome:   checkout.OutcomeCompleted,
		OrderID:   req.RazorpayOrderID,
		PaymentID: req.RazorpayPaymentID,
		Signature: req.RazorpaySignature,
	})

	c.JSON(http.StatusOK, gin.H{"verified": true})
}

type checkoutFailedRequest struct {
	RazorpayOrderID string `json:"razorpay_order_id" binding:"required"`
	Reason          string `json:"reason"`
}

// CheckoutFailed receives the gateway's payment.failed browser event and
// resumes the waiting session with the decline.
func (pc *PaymentController) CheckoutFailed(c *gin.Context) {
	var req checkoutFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pc.Logger.Info("Checkout declined by gateway",
		zap.String("order_id", req.RazorpayOrderID),
		zap.String("reason", req.Reason),
	)
	pc.Checkout.Deliver(req.RazorpayOrderID, checkout.Result{
		Outcome:       checkout.OutcomeFailed,
		OrderID:       req.RazorpayOrderID,
		DeclineReason: req.Reason,
	})
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

type checkoutDismissedRequest struct {
	RazorpayOrderID string `json:"razorpay_order_id" binding:"required"`
}

// CheckoutDismissed receives the modal-dismiss callback. No charge was
// attempted, so this is not an error.
func (pc *PaymentController) CheckoutDismissed(c *gin.Context) {
	var req checkoutDismissedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pc.Checkout.Deliver(req.RazorpayOrderID, checkout.Result{
		Outcome: checkout.OutcomeDismissed,
		OrderID: req.RazorpayOrderID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

type reconcileRequest struct {
	RecordID        string `json:"record_id" binding:"required"`
	RazorpayOrderID string `json:"razorpay_order_id" binding:"required"`
}

// Reconcile marks the backend record paid for an already-verified payment.
// Verification state is read from the server-side record, never trusted from
// the client.
func (pc *PaymentController) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := pc.Repo.FindByOrderID(c.Request.Context(), req.RazorpayOrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	paymentID := ""
	if payment.RazorpayPaymentID != nil {
		paymentID = *payment.RazorpayPaymentID
	}

	result, err := pc.Recon.RecordPayment(c.Request.Context(), services.RecordPaymentRequest{
		RecordID:    req.RecordID,
		PaymentID:   paymentID,
		OrderID:     payment.RazorpayOrderID,
		Amount:      payment.Amount,
		ServiceType: payment.ServiceType,
		Verified:    payment.VerifiedAt != nil,
		BearerToken: middleware.BearerToken(c),
	})
	if err != nil {
		pc.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         result.Status,
		"receipt_number": result.ReceiptNumber,
	})
}

// GetPaymentStatus returns the portal-side record for an order.
func (pc *PaymentController) GetPaymentStatus(c *gin.Context) {
	orderID := c.Param("order_id")

	payment, err := pc.Repo.FindByOrderID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	resp := gin.H{
		"order_id":     payment.RazorpayOrderID,
		"status":       payment.Status,
		"amount":       payment.Amount,
		"currency":     payment.Currency,
		"pending_sync": payment.PendingSync,
	}
	if payment.ReceiptNumber != nil {
		resp["receipt_number"] = *payment.ReceiptNumber
	}
	c.JSON(http.StatusOK, resp)
}

// respondServiceError maps a ServiceError onto its HTTP status; anything
// else is a 500.
func (pc *PaymentController) respondServiceError(c *gin.Context, err error) {
	var se *services.ServiceError
	if errors.As(err, &se) {
		pc.Logger.Warn(se.Message, zap.String("code", se.Code), zap.Error(se.Err))
		c.JSON(se.StatusCode, gin.H{"error": se.Message, "code": se.Code})
		return
	}
	pc.Logger.Error("Unexpected error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// terminalStatuses guards webhook and callback handlers against overwriting
// a final state.
var terminalStatuses = models.TerminalPaymentStatuses
