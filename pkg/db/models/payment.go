package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

// Payment is the durable record of one purchase attempt, keyed externally by
// OrderID. Status only moves forward; see internal/payments for the legal
// transitions. The subscription_* columns double as the deferred-activation
// ledger: while an awaiting flag is set the purchase has been paid for but not
// yet applied to a concrete entity.
type Payment struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       string               `gorm:"column:order_id;not null;uniqueIndex"`
	UserID        uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	ServiceType   enums.ServiceType    `gorm:"column:service_type;type:service_type;not null"`
	Amount        decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string               `gorm:"column:currency;not null"`
	Status        enums.PaymentStatus  `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaymentID     *string              `gorm:"column:payment_id"`
	PaymentMethod enums.PaymentGateway `gorm:"column:payment_method;type:payment_gateway;not null"`
	GatewayRef    *string              `gorm:"column:gateway_ref"`
	Description   string               `gorm:"column:description"`
	ItemID        *uuid.UUID           `gorm:"column:item_id;type:uuid"`

	SubscriptionStart    *time.Time         `gorm:"column:subscription_start"`
	SubscriptionEnd      *time.Time         `gorm:"column:subscription_end"`
	SubscriptionActive   bool               `gorm:"column:subscription_active;not null;default:false"`
	Plan                 enums.PlanInterval `gorm:"column:plan;type:plan_interval;not null;default:'monthly'"`
	AwaitingSubmission   bool               `gorm:"column:awaiting_submission;not null;default:false"`
	AwaitingVehicleReg   bool               `gorm:"column:awaiting_vehicle_registration;not null;default:false"`
	AwaitingGuideReg     bool               `gorm:"column:awaiting_guide_registration;not null;default:false"`
	VehicleIDs           pq.StringArray     `gorm:"column:vehicle_ids;type:text[]"`
	ActivatedAt          *time.Time         `gorm:"column:activated_at"`
	ReceiptEmailSentAt   *time.Time         `gorm:"column:receipt_email_sent_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Awaiting reports whether the purchase is still waiting for an entity to
// exist before its benefit can land.
func (p *Payment) Awaiting() bool {
	return p.AwaitingSubmission || p.AwaitingVehicleReg || p.AwaitingGuideReg
}
