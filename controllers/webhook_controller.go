package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"civic-portal/aws"
	"civic-portal/models"
	"civic-portal/repository"
	"civic-portal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookController receives asynchronous gateway notifications. The raw
// body is verified against the webhook secret before any JSON parsing:
// parsing first would break byte-for-byte equivalence with the signed
// payload and open a forgery window.
type WebhookController struct {
	Signatures *services.SignatureService
	Repo       repository.PaymentRepository
	Deliveries repository.WebhookRepository
	SNS        aws.SNSPublisher
	TopicArn   string
	Logger     *zap.Logger
}

// HandleWebhook verifies and dispatches a gateway webhook. A processing
// failure answers 500, not 200: acking a delivery whose transition never
// applied would stop the gateway's redelivery and lose the event.
func (wc *WebhookController) HandleWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !wc.Signatures.VerifyWebhook(rawBody, signature) {
		wc.Logger.Warn("Webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		wc.Logger.Warn("Failed to parse webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	wc.Logger.Info("Processing gateway webhook", zap.String("event", event.Event))

	ctx := c.Request.Context()
	var procErr error
	switch event.Event {
	case models.WebhookEventPaymentCaptured:
		procErr = wc.handlePaymentStatus(ctx, &event, models.PaymentStatusPaid)
	case models.WebhookEventPaymentFailed:
		procErr = wc.handlePaymentStatus(ctx, &event, models.PaymentStatusFailed)
	case models.WebhookEventOrderPaid:
		procErr = wc.handleOrderPaid(ctx, &event)
	default:
		wc.Logger.Info("Unhandled webhook event type", zap.String("event", event.Event))
	}

	if procErr != nil {
		wc.Logger.Error("Webhook processing failed",
			zap.String("event", event.Event),
			zap.Error(procErr),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handlePaymentStatus applies a payment.captured / payment.failed
// transition at most once per (payment id, event type). The ledger row is
// written after the terminal check and unwound if the update fails, so a
// redelivery can still apply the transition.
func (wc *WebhookController) handlePaymentStatus(ctx context.Context, event *models.WebhookEvent, status string) error {
	entity := event.Payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		wc.Logger.Warn("Webhook payment entity missing ids", zap.String("event", event.Event))
		return nil
	}

	payment, err := wc.Repo.FindByOrderID(ctx, entity.OrderID)
	if err != nil {
		return fmt.Errorf("payment lookup for order %s: %w", entity.OrderID, err)
	}

	if terminalStatuses[payment.Status] {
		wc.Logger.Info("Skipping webhook for payment already in terminal status",
			zap.String("order_id", entity.OrderID),
			zap.String("status", payment.Status),
		)
		return nil
	}

	alreadySeen, err := wc.Deliveries.RecordDelivery(ctx, entity.ID, event.Event, entity.OrderID)
	if err != nil {
		return fmt.Errorf("record webhook delivery: %w", err)
	}
	if alreadySeen {
		wc.Logger.Info("Skipping replayed webhook",
			zap.String("payment_id", entity.ID),
			zap.String("event", event.Event),
		)
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":              status,
		"razorpay_payment_id": entity.ID,
	}
	switch status {
	case models.PaymentStatusPaid:
		updates["paid_at"] = &now
	case models.PaymentStatusFailed:
		updates["failed_at"] = &now
	}

	if err := wc.Repo.UpdateByOrderID(ctx, entity.OrderID, updates); err != nil {
		if rmErr := wc.Deliveries.RemoveDelivery(ctx, entity.ID, event.Event); rmErr != nil {
			wc.Logger.Error("Failed to unmark webhook delivery", zap.Error(rmErr))
		}
		return fmt.Errorf("update payment for order %s: %w", entity.OrderID, err)
	}

	wc.publishEvent(ctx, "payment_"+status, payment, entity.ID)
	return nil
}

// handleOrderPaid handles order.paid, which arrives alongside
// payment.captured and may carry no payment entity at all. Deliveries are
// keyed by order id so payment-less events for different orders never
// collide in the ledger.
func (wc *WebhookController) handleOrderPaid(ctx context.Context, event *models.WebhookEvent) error {
	orderID := event.Payload.Order.Entity.ID
	paymentID := event.Payload.Payment.Entity.ID
	if orderID == "" {
		wc.Logger.Warn("Webhook order entity missing id")
		return nil
	}

	payment, err := wc.Repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("payment lookup for order %s: %w", orderID, err)
	}
	if terminalStatuses[payment.Status] {
		return nil
	}

	alreadySeen, err := wc.Deliveries.RecordDelivery(ctx, orderID, event.Event, orderID)
	if err != nil {
		return fmt.Errorf("record webhook delivery: %w", err)
	}
	if alreadySeen {
		wc.Logger.Info("Skipping replayed webhook",
			zap.String("order_id", orderID),
			zap.String("event", event.Event),
		)
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":  models.PaymentStatusPaid,
		"paid_at": &now,
	}
	if paymentID != "" {
		updates["razorpay_payment_id"] = paymentID
	}
	if err := wc.Repo.UpdateByOrderID(ctx, orderID, updates); err != nil {
		if rmErr := wc.Deliveries.RemoveDelivery(ctx, orderID, event.Event); rmErr != nil {
			wc.Logger.Error("Failed to unmark webhook delivery", zap.Error(rmErr))
		}
		return fmt.Errorf("update payment for order %s: %w", orderID, err)
	}

	wc.publishEvent(ctx, "payment_paid", payment, paymentID)
	return nil
}

func (wc *WebhookController) publishEvent(ctx context.Context, eventType string, payment *models.Payment, paymentID string) {
	if wc.SNS == nil || wc.TopicArn == "" {
		return
	}
	payload, _ := json.Marshal(models.PaymentEvent{
		Type:        eventType,
		OrderID:     payment.RazorpayOrderID,
		PaymentID:   paymentID,
		ServiceType: payment.ServiceType,
		ServiceID:   payment.ServiceID,
		UserID:      payment.UserID,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Timestamp:   time.Now().UTC(),
	})
	if err := wc.SNS.Publish(ctx, wc.TopicArn, payload); err != nil {
		wc.Logger.Error("Failed to publish payment event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	wc.Logger.Info("Payment event published",
		zap.String("event_type", eventType),
		zap.String("order_id", payment.RazorpayOrderID),
	)
}
