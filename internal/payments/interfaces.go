package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

// Awaiting flag columns used by the deferred-activation ledger. Conditional
// updates key on these so a voucher can only be consumed once.
const (
	FlagAwaitingSubmission          = "awaiting_submission"
	FlagAwaitingVehicleRegistration = "awaiting_vehicle_registration"
	FlagAwaitingGuideRegistration   = "awaiting_guide_registration"
)

// Repository defines persistence operations for the payments table. The
// Transition* methods are compare-and-swap updates: the boolean return
// reports whether this call owned the change (RowsAffected == 1).
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	FindByOrderIDForUser(ctx context.Context, orderID string, userID uuid.UUID) (*models.Payment, error)
	FindByGatewayPaymentID(ctx context.Context, gateway enums.PaymentGateway, gatewayPaymentID string) (*models.Payment, error)
	UpdateByOrderID(ctx context.Context, orderID string, updates map[string]any) error

	TransitionFromPending(ctx context.Context, orderID string, to enums.PaymentStatus, updates map[string]any) (bool, error)
	TransitionCompletedToRefunded(ctx context.Context, orderID string, updates map[string]any) (bool, error)
	MarkActivated(ctx context.Context, paymentID uuid.UUID, updates map[string]any) (bool, error)
	MarkReceiptSent(ctx context.Context, paymentID uuid.UUID, at time.Time) error

	FindOpenVoucher(ctx context.Context, userID uuid.UUID, serviceType enums.ServiceType, flag string) (*models.Payment, error)
	ListOpenVouchersByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	ConsumeAwaitingFlag(ctx context.Context, paymentID uuid.UUID, flag string, updates map[string]any) (bool, error)

	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error)
}
