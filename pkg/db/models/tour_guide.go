package models

import (
	"time"

	"github.com/google/uuid"
)

// TourGuide carries the premium slice of a guide profile. Guide premium is a
// single-owner upgrade: the newest profile of the purchaser gets the benefit.
type TourGuide struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	DisplayName    string     `gorm:"column:display_name;not null"`
	IsPremium      bool       `gorm:"column:is_premium;not null;default:false"`
	PremiumExpiry  *time.Time `gorm:"column:premium_expiry"`
	FeaturedStatus bool       `gorm:"column:featured_status;not null;default:false"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
