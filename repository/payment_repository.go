package repository

import (
	"context"
	"time"

	"civic-portal/models"

	"gorm.io/gorm"
)

// PaymentRepository persists portal-side payment records.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error)
	FindByPaymentID(ctx context.Context, razorpayPaymentID string) (*models.Payment, error)
	UpdateByOrderID(ctx context.Context, razorpayOrderID string, updates map[string]interface{}) error
	ListPendingSync(ctx context.Context, limit int) ([]models.Payment, error)
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *gormPaymentRepo) FindByOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("razorpay_order_id = ?", razorpayOrderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindByPaymentID(ctx context.Context, razorpayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("razorpay_payment_id = ?", razorpayPaymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) UpdateByOrderID(ctx context.Context, razorpayOrderID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("razorpay_order_id = ?", razorpayOrderID).
		Updates(updates).Error
}

func (r *gormPaymentRepo) ListPendingSync(ctx context.Context, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("pending_sync = ?", true).
		Order("updated_at asc").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
