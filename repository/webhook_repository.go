package repository

import (
	"context"
	"errors"
	"time"

	"civic-portal/models"

	"gorm.io/gorm"
)

// WebhookRepository is the idempotency ledger for webhook deliveries.
type WebhookRepository interface {
	// RecordDelivery inserts a (delivery key, event type) pair and reports
	// whether this delivery was seen before. The unique index makes the
	// check-and-insert safe against concurrent redeliveries.
	RecordDelivery(ctx context.Context, deliveryKey, eventType, orderID string) (alreadySeen bool, err error)
	// RemoveDelivery unmarks a delivery whose transition failed to apply, so
	// the gateway's redelivery can heal it.
	RemoveDelivery(ctx context.Context, deliveryKey, eventType string) error
}

type gormWebhookRepo struct {
	db *gorm.DB
}

func NewGormWebhookRepo(db *gorm.DB) WebhookRepository {
	return &gormWebhookRepo{db: db}
}

func (r *gormWebhookRepo) RecordDelivery(ctx context.Context, deliveryKey, eventType, orderID string) (bool, error) {
	delivery := models.WebhookDelivery{
		DeliveryKey: deliveryKey,
		EventType:   eventType,
		OrderID:     orderID,
		ReceivedAt:  time.Now(),
	}
	err := r.db.WithContext(ctx).Create(&delivery).Error
	if err == nil {
		return false, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, nil
	}
	return false, err
}

func (r *gormWebhookRepo) RemoveDelivery(ctx context.Context, deliveryKey, eventType string) error {
	return r.db.WithContext(ctx).
		Where("delivery_key = ? AND event_type = ?", deliveryKey, eventType).
		Delete(&models.WebhookDelivery{}).Error
}
