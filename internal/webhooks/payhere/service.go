package payherewebhook

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
	"github.com/tourlanka/tourlanka-backend/pkg/metrics"
	"github.com/tourlanka/tourlanka-backend/pkg/payhere"
)

type paymentProcessor interface {
	ProcessSuccess(ctx context.Context, orderID, gatewayPaymentID string, gateway enums.PaymentGateway) error
	MarkFailed(ctx context.Context, orderID, reason string, gateway enums.PaymentGateway) error
	MarkRefunded(ctx context.Context, orderID string) error
}

// ServiceParams lists the dependencies for NewService. Metrics is optional.
type ServiceParams struct {
	MerchantID     string
	MerchantSecret string
	Payments       paymentProcessor
	Logger         *logger.Logger
	Metrics        *metrics.PaymentMetrics
}

// Service verifies and applies PayHere server-to-server notifications. The
// md5sig check runs before anything else is trusted from the payload.
type Service struct {
	merchantID     string
	merchantSecret string
	payments       paymentProcessor
	logg           *logger.Logger
	metrics        *metrics.PaymentMetrics
}

// NewService validates dependencies and builds the notification handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.MerchantID == "" {
		return nil, fmt.Errorf("merchant id required")
	}
	if params.MerchantSecret == "" {
		return nil, fmt.Errorf("merchant secret required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		merchantID:     params.MerchantID,
		merchantSecret: params.MerchantSecret,
		payments:       params.Payments,
		logg:           params.Logger,
		metrics:        params.Metrics,
	}, nil
}

// HandleNotification parses, authenticates, and applies one notification.
// PayHere retries any non-200 response, so only errors that a retry could
// fix are returned; everything else is acknowledged.
func (s *Service) HandleNotification(ctx context.Context, form url.Values) error {
	notification, err := payhere.ParseNotification(form)
	if err != nil {
		s.metrics.IncRejected(enums.PaymentGatewayPayHere.String())
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse notification")
	}

	ctx = s.logg.WithOrderID(ctx, notification.OrderID)
	ctx = s.logg.WithGateway(ctx, enums.PaymentGatewayPayHere.String())

	if notification.MerchantID != s.merchantID ||
		!payhere.VerifyNotification(s.merchantID, s.merchantSecret, notification) {
		s.metrics.IncRejected(enums.PaymentGatewayPayHere.String())
		s.logg.Warn(ctx, "notification signature rejected")
		return pkgerrors.New(pkgerrors.CodeAuthenticity, "invalid notification signature")
	}

	switch notification.StatusCode {
	case payhere.StatusCodeSuccess:
		return s.ackUnknownOrder(ctx, s.payments.ProcessSuccess(ctx, notification.OrderID, notification.PaymentID, enums.PaymentGatewayPayHere))

	case payhere.StatusCodePending:
		s.logg.Info(ctx, "payment still pending at gateway")
		return nil

	case payhere.StatusCodeCanceled, payhere.StatusCodeFailed:
		reason := notification.StatusMessage
		if reason == "" {
			reason = "gateway status " + notification.StatusCode
		}
		return s.ackUnknownOrder(ctx, s.payments.MarkFailed(ctx, notification.OrderID, reason, enums.PaymentGatewayPayHere))

	case payhere.StatusCodeChargedback:
		return s.handleChargeback(ctx, notification)

	default:
		s.logg.Warn(ctx, fmt.Sprintf("unknown status code %s ignored", notification.StatusCode))
		return nil
	}
}

// handleChargeback reverses a completed payment. A chargeback on a payment
// that never completed is treated as a plain failure.
func (s *Service) handleChargeback(ctx context.Context, notification *payhere.Notification) error {
	err := s.payments.MarkRefunded(ctx, notification.OrderID)
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
		return s.ackUnknownOrder(ctx, s.payments.MarkFailed(ctx, notification.OrderID, "charged back before completion", enums.PaymentGatewayPayHere))
	}
	return s.ackUnknownOrder(ctx, err)
}

// ackUnknownOrder swallows a not-found from the state machine. The signature
// already proved the notification is ours, so a missing order means our record
// is gone, not that the gateway should retry. Logged for operator follow-up.
func (s *Service) ackUnknownOrder(ctx context.Context, err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		s.logg.Error(ctx, "verified notification references unknown order, acknowledged without processing", err)
		return nil
	}
	return err
}
