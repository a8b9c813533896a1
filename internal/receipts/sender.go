package receipts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

// Receipt carries what the purchaser is told after a successful activation.
type Receipt struct {
	UserID      uuid.UUID
	OrderID     string
	ServiceType enums.ServiceType
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// Sender delivers a purchase receipt. Delivery failures never fail the
// payment transition; callers log and move on.
type Sender interface {
	SendReceipt(ctx context.Context, receipt Receipt) error
}

type logSender struct {
	logg *logger.Logger
}

// NewLogSender returns a Sender that records receipts in the service log.
// The outbound email integration lives in the notifications subsystem and is
// wired in production deployments.
func NewLogSender(logg *logger.Logger) (Sender, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &logSender{logg: logg}, nil
}

func (s *logSender) SendReceipt(ctx context.Context, receipt Receipt) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     receipt.OrderID,
		"user_id":      receipt.UserID.String(),
		"service_type": receipt.ServiceType.String(),
		"amount":       receipt.Amount.StringFixed(2),
		"currency":     receipt.Currency,
	})
	s.logg.Info(ctx, "receipt recorded for delivery")
	return nil
}
