package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment statuses mirror the gateway's order lifecycle. There is no
// explicit cancelled status: an abandoned checkout simply never leaves
// "created".
const (
	PaymentStatusCreated   = "created"
	PaymentStatusAttempted = "attempted"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
)

// Payment is the portal-side record of a gateway order and its outcome.
type Payment struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RazorpayOrderID   string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	RazorpayPaymentID *string   `gorm:"type:varchar(64);uniqueIndex"`
	Amount            int       `gorm:"not null"` // in paise
	Currency          string    `gorm:"type:varchar(10);not null"`
	Receipt           string    `gorm:"type:varchar(64);index;not null"`
	Status            string    `gorm:"type:varchar(20);not null"`
	ServiceType       string    `gorm:"type:varchar(40);index"` // certificate | grievance_upgrade | bill
	ServiceID         string    `gorm:"type:varchar(64);index"`
	ApplicationID     string    `gorm:"type:varchar(64);index"`
	UserID            string    `gorm:"type:varchar(64);index"`
	NotesJSON         *string   `gorm:"type:jsonb"` // gateway notes as sent, for audit
	ReceiptNumber     *string   `gorm:"type:varchar(64)"`
	PendingSync       bool      `gorm:"not null;default:false;index"`
	SyncAttempts      int       `gorm:"not null;default:0"`
	VerifiedAt        *time.Time
	PaidAt            *time.Time
	FailedAt          *time.Time
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TerminalPaymentStatuses are statuses that must never be overwritten by a
// replayed webhook or a late checkout callback.
var TerminalPaymentStatuses = map[string]bool{
	PaymentStatusPaid:   true,
	PaymentStatusFailed: true,
}

// FeeCalculation is the derived fee breakdown shown on the review step.
// It is never stored; recomputing from the same base amount is deterministic.
type FeeCalculation struct {
	BaseAmount    int `json:"baseAmount"`
	ProcessingFee int `json:"processingFee"`
	Tax           int `json:"tax"`
	TotalAmount   int `json:"totalAmount"`
}

// PaymentEvent is the standardized event published to SNS after a payment
// transition, consumed by the notification pipeline.
type PaymentEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	PaymentID     string    `json:"payment_id"`
	ServiceType   string    `json:"service_type"`
	ServiceID     string    `json:"service_id"`
	UserID        string    `json:"user_id"`
	Amount        int       `json:"amount"`
	Currency      string    `json:"currency"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
