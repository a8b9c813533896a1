package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
)

// ListByUser returns every business listing the user owns, oldest first.
func (r *ListingRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.BusinessListing, error) {
	var listings []models.BusinessListing
	err := conn(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// FindByIDForUser loads one listing owned by the given user.
func (r *ListingRepository) FindByIDForUser(ctx context.Context, tx *gorm.DB, listingID, userID uuid.UUID) (*models.BusinessListing, error) {
	var listing models.BusinessListing
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", listingID, userID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// ApplyPremium writes premium/moderation fields onto one listing.
func (r *ListingRepository) ApplyPremium(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, updates map[string]any) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.BusinessListing{}).
		Where("id = ?", listingID).
		Updates(updates).Error
}
