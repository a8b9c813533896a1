package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	"github.com/tourlanka/tourlanka-backend/pkg/payhere"
)

// CheckoutInput captures what the purchaser is buying.
type CheckoutInput struct {
	UserID      uuid.UUID
	ServiceType enums.ServiceType
	ItemID      *uuid.UUID
}

// PayHereCheckout is returned to the frontend, which posts the signed fields
// to the hosted checkout page.
type PayHereCheckout struct {
	OrderID     string                   `json:"order_id"`
	CheckoutURL string                   `json:"checkout_url"`
	Fields      *payhere.CheckoutRequest `json:"fields"`
}

// StripeCheckout is returned to the frontend, which redirects the browser to
// the hosted session URL.
type StripeCheckout struct {
	OrderID    string `json:"order_id"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}

// StatusView is the purchaser-facing projection of a payment record.
type StatusView struct {
	OrderID           string               `json:"order_id"`
	ServiceType       enums.ServiceType    `json:"service_type"`
	Status            enums.PaymentStatus  `json:"status"`
	Amount            decimal.Decimal      `json:"amount"`
	Currency          string               `json:"currency"`
	PaymentMethod     enums.PaymentGateway `json:"payment_method"`
	Description       string               `json:"description"`
	Plan              enums.PlanInterval   `json:"plan"`
	SubscriptionStart *time.Time           `json:"subscription_start,omitempty"`
	SubscriptionEnd   *time.Time           `json:"subscription_end,omitempty"`
	Active            bool                 `json:"active"`
	Awaiting          bool                 `json:"awaiting"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// NewStatusView projects a payment record for API responses.
func NewStatusView(p *models.Payment) *StatusView {
	return &StatusView{
		OrderID:           p.OrderID,
		ServiceType:       p.ServiceType,
		Status:            p.Status,
		Amount:            p.Amount,
		Currency:          p.Currency,
		PaymentMethod:     p.PaymentMethod,
		Description:       p.Description,
		Plan:              p.Plan,
		SubscriptionStart: p.SubscriptionStart,
		SubscriptionEnd:   p.SubscriptionEnd,
		Active:            p.SubscriptionActive,
		Awaiting:          p.Awaiting(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// ReconcileReport summarizes one reconciliation sweep.
type ReconcileReport struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
