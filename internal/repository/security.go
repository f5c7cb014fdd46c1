package repository

import (
	"context"

	"dumdummies/internal/models"

	"gorm.io/gorm"
)

// SecurityRepository stores refused creator actions.
type SecurityRepository interface {
	Create(ctx context.Context, violation *models.SecurityViolation) error
	ListByChannel(ctx context.Context, channelID string, limit int) ([]models.SecurityViolation, error)
}

type securityRepository struct {
	db *gorm.DB
}

// NewSecurityRepository returns a new SecurityRepository implementation.
func NewSecurityRepository(db *gorm.DB) SecurityRepository {
	return &securityRepository{db: db}
}

func (r *securityRepository) Create(ctx context.Context, violation *models.SecurityViolation) error {
	if err := r.db.WithContext(ctx).Create(violation).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *securityRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]models.SecurityViolation, error) {
	var out []models.SecurityViolation
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(clampLimit(limit, 50, 200)).
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
