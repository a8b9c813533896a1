package models

import (
	"time"

	"github.com/google/uuid"
)

// Tour is the redemption target of a tour-partnership voucher.
type Tour struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Title     string    `gorm:"column:title;not null"`
	IsPartner bool      `gorm:"column:is_partner;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
