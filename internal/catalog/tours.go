package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
)

// FindByIDForUser loads one tour owned by the given user.
func (r *TourRepository) FindByIDForUser(ctx context.Context, tx *gorm.DB, tourID, userID uuid.UUID) (*models.Tour, error) {
	var tour models.Tour
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", tourID, userID).
		First(&tour).Error
	if err != nil {
		return nil, err
	}
	return &tour, nil
}

// MarkPartner flips the partnership flag on a tour.
func (r *TourRepository) MarkPartner(ctx context.Context, tx *gorm.DB, tourID uuid.UUID) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.Tour{}).
		Where("id = ?", tourID).
		Update("is_partner", true).Error
}
