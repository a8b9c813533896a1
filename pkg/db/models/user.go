package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the purchaser reference. Account management is owned by the auth
// subsystem; the payments core reads email/name for receipts only.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	FullName  string    `gorm:"column:full_name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
