package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate types the portal charges a flat fee for.
const (
	CertificateBirth     = "birth"
	CertificateDeath     = "death"
	CertificateIncome    = "income"
	CertificateResidence = "residence"
	CertificateMarriage  = "marriage"
)

// Application statuses. The municipal backend owns the authoritative record;
// rows here are the portal's local view and may lag until the next sync.
const (
	ApplicationStatusPending     = "pending"
	ApplicationStatusPaid        = "paid"
	ApplicationStatusPendingSync = "pending_sync"
)

// CertificateApplication is the portal's local copy of a certificate
// application, created after a verified payment.
type CertificateApplication struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CertificateType string         `gorm:"type:varchar(30);not null"`
	ApplicantName   string         `gorm:"type:varchar(120);not null"`
	UserID          string         `gorm:"type:varchar(64);index;not null"`
	FormDataJSON    *string        `gorm:"type:jsonb"`
	Status          string         `gorm:"type:varchar(20);not null"`
	ReceiptNumber   *string        `gorm:"type:varchar(64)"`
	PaymentID       *string        `gorm:"type:varchar(64);index"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// Grievance priority levels.
const (
	GrievancePriorityNormal = "normal"
	GrievancePriorityHigh   = "high"
)

// GrievanceUpgrade records a paid priority upgrade for a grievance owned by
// the municipal backend.
type GrievanceUpgrade struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GrievanceID   string    `gorm:"type:varchar(64);index;not null"`
	UserID        string    `gorm:"type:varchar(64);index;not null"`
	Priority      string    `gorm:"type:varchar(20);not null"`
	Status        string    `gorm:"type:varchar(20);not null"`
	ReceiptNumber *string   `gorm:"type:varchar(64)"`
	PaymentID     *string   `gorm:"type:varchar(64);index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}
