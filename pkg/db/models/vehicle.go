package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle carries the premium slice of a rentable vehicle. A single vehicle
// premium purchase upgrades every vehicle the user owns.
type Vehicle struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	RegistrationNo   string     `gorm:"column:registration_no;not null"`
	IsPremium        bool       `gorm:"column:is_premium;not null;default:false"`
	PremiumExpiry    *time.Time `gorm:"column:premium_expiry"`
	FeaturedStatus   bool       `gorm:"column:featured_status;not null;default:false"`
	MaxPhotos        int        `gorm:"column:max_photos;not null;default:5"`
	AnalyticsEnabled bool       `gorm:"column:analytics_enabled;not null;default:false"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
