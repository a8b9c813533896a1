package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
)

// ListByUser returns every vehicle the user owns, oldest first.
func (r *VehicleRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := conn(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

// FindByIDForUser loads one vehicle owned by the given user.
func (r *VehicleRepository) FindByIDForUser(ctx context.Context, tx *gorm.DB, vehicleID, userID uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", vehicleID, userID).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// ApplyPremium writes premium fields onto one vehicle.
func (r *VehicleRepository) ApplyPremium(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, updates map[string]any) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ?", vehicleID).
		Updates(updates).Error
}
