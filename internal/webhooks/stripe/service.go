package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

type paymentProcessor interface {
	ProcessSuccess(ctx context.Context, orderID, gatewayPaymentID string, gateway enums.PaymentGateway) error
	MarkFailed(ctx context.Context, orderID, reason string, gateway enums.PaymentGateway) error
	MarkRefunded(ctx context.Context, orderID string) error
}

type paymentLookup interface {
	FindByGatewayPaymentID(ctx context.Context, gateway enums.PaymentGateway, gatewayPaymentID string) (*models.Payment, error)
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Payments paymentProcessor
	Lookup   paymentLookup
	Logger   *logger.Logger
}

// Service applies verified Stripe events to the payment state machine. The
// controller verifies the webhook signature before events get here.
type Service struct {
	payments paymentProcessor
	lookup   paymentLookup
	logg     *logger.Logger
}

// NewService validates dependencies and builds the event handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if params.Lookup == nil {
		return nil, fmt.Errorf("payment lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		payments: params.Payments,
		lookup:   params.Lookup,
		logg:     params.Logger,
	}, nil
}

// HandleEvent routes one event. Unhandled event types are acknowledged so
// Stripe stops redelivering them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	ctx = s.logg.WithGateway(ctx, enums.PaymentGatewayStripe.String())

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return s.handleSessionPaid(ctx, event)

	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		return s.handleSessionFailed(ctx, event, "async payment failed")

	case stripe.EventTypeCheckoutSessionExpired:
		return s.handleSessionFailed(ctx, event, "checkout session expired")

	case stripe.EventTypeChargeRefunded:
		return s.handleChargeRefunded(ctx, event)

	default:
		return nil
	}
}

func (s *Service) handleSessionPaid(ctx context.Context, event *stripe.Event) error {
	session, orderID, err := decodeSession(event)
	if err != nil {
		return err
	}

	ctx = s.logg.WithOrderID(ctx, orderID)

	// checkout.session.completed fires for delayed payment methods before
	// the money moves; wait for the async success event in that case
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.logg.Info(ctx, "session completed but unpaid, awaiting payment")
		return nil
	}

	paymentID := ""
	if session.PaymentIntent != nil {
		paymentID = session.PaymentIntent.ID
	}
	return s.ackUnknownOrder(ctx, s.payments.ProcessSuccess(ctx, orderID, paymentID, enums.PaymentGatewayStripe))
}

func (s *Service) handleSessionFailed(ctx context.Context, event *stripe.Event, reason string) error {
	_, orderID, err := decodeSession(event)
	if err != nil {
		return err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)
	return s.ackUnknownOrder(ctx, s.payments.MarkFailed(ctx, orderID, reason, enums.PaymentGatewayStripe))
}

// handleChargeRefunded maps the charge's payment intent back to our order.
// Charges we never recorded belong to other products on the same account.
func (s *Service) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		s.logg.Warn(ctx, "refunded charge carries no payment intent")
		return nil
	}

	payment, err := s.lookup.FindByGatewayPaymentID(ctx, enums.PaymentGatewayStripe, charge.PaymentIntent.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, fmt.Sprintf("refund for unknown payment intent %s ignored", charge.PaymentIntent.ID))
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve refunded payment")
	}

	ctx = s.logg.WithOrderID(ctx, payment.OrderID)
	return s.ackUnknownOrder(ctx, s.payments.MarkRefunded(ctx, payment.OrderID))
}

// ackUnknownOrder swallows a not-found from the state machine. The event
// signature already proved the delivery is ours; returning an error would only
// make Stripe redeliver a notification we can never apply. Logged for operator
// follow-up.
func (s *Service) ackUnknownOrder(ctx context.Context, err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		s.logg.Error(ctx, "verified event references unknown order, acknowledged without processing", err)
		return nil
	}
	return err
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, string, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode session event")
	}

	orderID := session.ClientReferenceID
	if orderID == "" {
		orderID = session.Metadata["order_id"]
	}
	if orderID == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "session carries no order reference")
	}
	return &session, orderID, nil
}
