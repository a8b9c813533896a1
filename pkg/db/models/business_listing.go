package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

// BusinessListing holds the premium slice of a marketplace listing. The full
// listing lifecycle (content, media, moderation workflow) lives in the CRUD
// subsystem; the payments core only touches the upgrade fields below.
type BusinessListing struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Name           string              `gorm:"column:name;not null"`
	Status         enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'pending'"`
	IsVerified     bool                `gorm:"column:is_verified;not null;default:false"`
	NeedsReview    bool                `gorm:"column:needs_review;not null;default:false"`
	IsPremium      bool                `gorm:"column:is_premium;not null;default:false"`
	PremiumExpiry  *time.Time          `gorm:"column:premium_expiry"`
	FeaturedStatus bool                `gorm:"column:featured_status;not null;default:false"`
	MaxPhotos      int                 `gorm:"column:max_photos;not null;default:5"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
