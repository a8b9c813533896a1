package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
)

// FindNewestByUser returns the most recently created guide profile of the
// user. gorm.ErrRecordNotFound when the user has none.
func (r *GuideRepository) FindNewestByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.TourGuide, error) {
	var guide models.TourGuide
	err := conn(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&guide).Error
	if err != nil {
		return nil, err
	}
	return &guide, nil
}

// ApplyPremium writes premium fields onto one guide profile.
func (r *GuideRepository) ApplyPremium(ctx context.Context, tx *gorm.DB, guideID uuid.UUID, updates map[string]any) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.TourGuide{}).
		Where("id = ?", guideID).
		Updates(updates).Error
}
