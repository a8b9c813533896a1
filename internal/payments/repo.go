package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByOrderIDForUser(ctx context.Context, orderID string, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND user_id = ?", orderID, userID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByGatewayPaymentID resolves the gateway's own transaction reference
// back to a payment. Refund notifications carry this instead of the order id.
func (r *repository) FindByGatewayPaymentID(ctx context.Context, gateway enums.PaymentGateway, gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("payment_method = ? AND payment_id = ?", gateway, gatewayPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdateByOrderID(ctx context.Context, orderID string, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

// TransitionFromPending is the state-machine gate: one conditional UPDATE
// matching the pending status. Exactly one concurrent caller sees true.
func (r *repository) TransitionFromPending(ctx context.Context, orderID string, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TransitionCompletedToRefunded(ctx context.Context, orderID string, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = enums.PaymentStatusRefunded

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusCompleted).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkActivated stamps activated_at exactly once. The winner of this update
// is the only caller allowed to send the receipt.
func (r *repository) MarkActivated(ctx context.Context, paymentID uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND activated_at IS NULL", paymentID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkReceiptSent(ctx context.Context, paymentID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("receipt_email_sent_at", at).Error
}

func (r *repository) FindOpenVoucher(ctx context.Context, userID uuid.UUID, serviceType enums.ServiceType, flag string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND service_type = ? AND status = ?", userID, serviceType, enums.PaymentStatusCompleted).
		Where(flag+" = ?", true).
		Order("created_at ASC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListOpenVouchersByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var vouchers []models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.PaymentStatusCompleted).
		Where("awaiting_submission = ? OR awaiting_vehicle_registration = ? OR awaiting_guide_registration = ?", true, true, true).
		Order("created_at ASC").
		Find(&vouchers).Error
	if err != nil {
		return nil, err
	}
	return vouchers, nil
}

// ConsumeAwaitingFlag clears one awaiting flag with a conditional UPDATE so
// concurrent redemptions of the same voucher cannot both succeed.
func (r *repository) ConsumeAwaitingFlag(ctx context.Context, paymentID uuid.UUID, flag string, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates[flag] = false

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ? AND "+flag+" = ?", paymentID, enums.PaymentStatusCompleted, true).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PaymentStatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
