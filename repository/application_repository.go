package repository

import (
	"context"

	"civic-portal/models"

	"gorm.io/gorm"
)

// ApplicationRepository persists the portal's local view of paid
// applications and grievance upgrades. The municipal backend remains
// authoritative; these rows back the citizen's "my applications" list until
// the next authoritative fetch.
type ApplicationRepository interface {
	CreateApplication(ctx context.Context, app *models.CertificateApplication) error
	ListApplicationsByUser(ctx context.Context, userID string) ([]models.CertificateApplication, error)
	CreateGrievanceUpgrade(ctx context.Context, up *models.GrievanceUpgrade) error
	FindUpgradeByGrievanceID(ctx context.Context, grievanceID string) (*models.GrievanceUpgrade, error)
}

type gormApplicationRepo struct {
	db *gorm.DB
}

func NewGormApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &gormApplicationRepo{db: db}
}

func (r *gormApplicationRepo) CreateApplication(ctx context.Context, app *models.CertificateApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *gormApplicationRepo) ListApplicationsByUser(ctx context.Context, userID string) ([]models.CertificateApplication, error) {
	var apps []models.CertificateApplication
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&apps).Error
	return apps, err
}

func (r *gormApplicationRepo) CreateGrievanceUpgrade(ctx context.Context, up *models.GrievanceUpgrade) error {
	return r.db.WithContext(ctx).Create(up).Error
}

func (r *gormApplicationRepo) FindUpgradeByGrievanceID(ctx context.Context, grievanceID string) (*models.GrievanceUpgrade, error) {
	var up models.GrievanceUpgrade
	if err := r.db.WithContext(ctx).Where("grievance_id = ?", grievanceID).First(&up).Error; err != nil {
		return nil, err
	}
	return &up, nil
}
