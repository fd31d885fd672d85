package models

import (
	"time"
)

// Webhook event types delivered by the gateway.
const (
	WebhookEventPaymentCaptured = "payment.captured"
	WebhookEventPaymentFailed   = "payment.failed"
	WebhookEventOrderPaid       = "order.paid"
)

// WebhookDelivery is the idempotency ledger for gateway webhooks. Gateways
// redeliver on timeout, so each (delivery key, event type) pair is applied at
// most once; the unique index is the guard. The key is the payment id for
// payment.* events and the order id for order.paid, which may arrive without
// a payment entity.
type WebhookDelivery struct {
	ID          uint   `gorm:"primaryKey"`
	DeliveryKey string `gorm:"type:varchar(64);not null;uniqueIndex:idx_webhook_delivery_event"`
	EventType   string `gorm:"type:varchar(40);not null;uniqueIndex:idx_webhook_delivery_event"`
	OrderID     string `gorm:"type:varchar(64);index"`
	ReceivedAt  time.Time
}

// WebhookEvent is the parsed shape of a gateway webhook body. Parsing only
// ever happens after the raw body signature has been verified.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int    `json:"amount"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID     string `json:"id"`
				Amount int    `json:"amount"`
				Status string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}
