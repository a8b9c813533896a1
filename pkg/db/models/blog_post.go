package models

import (
	"time"

	"github.com/google/uuid"
)

// BlogPost is the redemption target of a sponsored-post voucher. The post is
// created by the content subsystem; the payments core only flips IsSponsored
// when a voucher is consumed.
type BlogPost struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	IsSponsored bool      `gorm:"column:is_sponsored;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
