package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/internal/activation"
	"github.com/tourlanka/tourlanka-backend/internal/receipts"
	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
	"github.com/tourlanka/tourlanka-backend/pkg/metrics"
	"github.com/tourlanka/tourlanka-backend/pkg/payhere"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type activationDispatcher interface {
	Activate(ctx context.Context, tx *gorm.DB, payment *models.Payment, now time.Time) (*activation.Result, error)
}

type payhereGateway interface {
	CheckoutURL() string
	BuildCheckout(orderID, items string, amount decimal.Decimal, currency string) (*payhere.CheckoutRequest, error)
	AccessToken(ctx context.Context) (string, error)
	SearchPayments(ctx context.Context, token, orderID string) ([]payhere.PaymentRecord, error)
}

// Service drives the payment lifecycle: checkout creation, the pending ->
// completed/failed/refunded state machine, activation, and reconciliation.
type Service interface {
	CreatePayHereCheckout(ctx context.Context, input CheckoutInput) (*PayHereCheckout, error)
	CreateStripeCheckout(ctx context.Context, input CheckoutInput) (*StripeCheckout, error)
	GetStatus(ctx context.Context, orderID string, userID uuid.UUID) (*StatusView, error)

	ProcessSuccess(ctx context.Context, orderID, gatewayPaymentID string, gateway enums.PaymentGateway) error
	MarkFailed(ctx context.Context, orderID, reason string, gateway enums.PaymentGateway) error
	MarkRefunded(ctx context.Context, orderID string) error

	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

// ServiceParams lists the dependencies for NewService. PayHere, Stripe and
// Metrics are optional so single-gateway deployments and tests stay light;
// everything else is required.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Dispatcher activationDispatcher
	Receipts   receipts.Sender
	Logger     *logger.Logger

	PayHere          payhereGateway
	Stripe           StripeCheckoutClient
	StripeSuccessURL string
	StripeCancelURL  string

	Metrics *metrics.PaymentMetrics

	ReconcilePendingAge time.Duration
	ReconcileLimit      int

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	dispatcher activationDispatcher
	receipts   receipts.Sender
	logg       *logger.Logger

	payhere          payhereGateway
	stripe           StripeCheckoutClient
	stripeSuccessURL string
	stripeCancelURL  string

	metrics *metrics.PaymentMetrics

	reconcilePendingAge time.Duration
	reconcileLimit      int

	now func() time.Time
}

// NewService validates dependencies and builds the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("activation dispatcher required")
	}
	if params.Receipts == nil {
		return nil, fmt.Errorf("receipt sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.ReconcilePendingAge <= 0 {
		params.ReconcilePendingAge = 7 * 24 * time.Hour
	}
	if params.ReconcileLimit <= 0 {
		params.ReconcileLimit = 250
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:                params.Repo,
		tx:                  params.Tx,
		dispatcher:          params.Dispatcher,
		receipts:            params.Receipts,
		logg:                params.Logger,
		payhere:             params.PayHere,
		stripe:              params.Stripe,
		stripeSuccessURL:    params.StripeSuccessURL,
		stripeCancelURL:     params.StripeCancelURL,
		metrics:             params.Metrics,
		reconcilePendingAge: params.ReconcilePendingAge,
		reconcileLimit:      params.ReconcileLimit,
		now:                 params.Now,
	}, nil
}

func newOrderID() string {
	return "TL-" + uuid.NewString()
}

func (s *service) createPayment(ctx context.Context, input CheckoutInput, gateway enums.PaymentGateway) (*models.Payment, string, error) {
	if input.UserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ServiceType.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}

	amount, currency, label, err := PriceFor(input.ServiceType)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolve price")
	}

	payment := &models.Payment{
		OrderID:       newOrderID(),
		UserID:        input.UserID,
		ServiceType:   input.ServiceType,
		Amount:        amount,
		Currency:      currency,
		Status:        enums.PaymentStatusPending,
		PaymentMethod: gateway,
		Description:   label,
		ItemID:        input.ItemID,
		Plan:          input.ServiceType.Interval(),
	}
	if _, err := s.repo.Create(ctx, payment); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment record")
	}
	return payment, label, nil
}

func (s *service) CreatePayHereCheckout(ctx context.Context, input CheckoutInput) (*PayHereCheckout, error) {
	if s.payhere == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payhere gateway not configured")
	}

	payment, label, err := s.createPayment(ctx, input, enums.PaymentGatewayPayHere)
	if err != nil {
		return nil, err
	}

	fields, err := s.payhere.BuildCheckout(payment.OrderID, label, payment.Amount, payment.Currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payhere checkout")
	}

	ctx = s.logg.WithOrderID(ctx, payment.OrderID)
	s.logg.Info(ctx, "payhere checkout created")

	return &PayHereCheckout{
		OrderID:     payment.OrderID,
		CheckoutURL: s.payhere.CheckoutURL(),
		Fields:      fields,
	}, nil
}

func (s *service) CreateStripeCheckout(ctx context.Context, input CheckoutInput) (*StripeCheckout, error) {
	if s.stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe gateway not configured")
	}

	payment, label, err := s.createPayment(ctx, input, enums.PaymentGatewayStripe)
	if err != nil {
		return nil, err
	}

	// LKR is a two-decimal currency; Stripe wants minor units
	unitAmount := payment.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.stripeSuccessURL),
		CancelURL:         stripe.String(s.stripeCancelURL),
		ClientReferenceID: stripe.String(payment.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(payment.Currency),
					UnitAmount: stripe.Int64(unitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(label),
					},
				},
			},
		},
	}
	params.AddMetadata("order_id", payment.OrderID)

	sess, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe session")
	}

	if err := s.repo.UpdateByOrderID(ctx, payment.OrderID, map[string]any{"gateway_ref": sess.ID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session reference")
	}

	ctx = s.logg.WithOrderID(ctx, payment.OrderID)
	s.logg.Info(ctx, fmt.Sprintf("stripe checkout session %s created", sess.ID))

	return &StripeCheckout{
		OrderID:    payment.OrderID,
		SessionID:  sess.ID,
		SessionURL: sess.URL,
	}, nil
}

func (s *service) GetStatus(ctx context.Context, orderID string, userID uuid.UUID) (*StatusView, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	payment, err := s.repo.FindByOrderIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return NewStatusView(payment), nil
}

// ProcessSuccess handles a verified success notification. Safe to call any
// number of times for the same order: the pending transition is a CAS, the
// dispatcher is idempotent, and activated_at gates the receipt.
func (s *service) ProcessSuccess(ctx context.Context, orderID, gatewayPaymentID string, gateway enums.PaymentGateway) error {
	ctx = s.logg.WithOrderID(ctx, orderID)
	ctx = s.logg.WithGateway(ctx, gateway.String())

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown order id")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.PaymentMethod != gateway {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order belongs to a different gateway")
	}

	switch payment.Status {
	case enums.PaymentStatusPending:
		updates := map[string]any{}
		if gatewayPaymentID != "" {
			updates["payment_id"] = gatewayPaymentID
		}
		owned, err := s.repo.TransitionFromPending(ctx, orderID, enums.PaymentStatusCompleted, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment")
		}
		if owned {
			s.metrics.IncTransition(gateway.String(), enums.PaymentStatusCompleted.String())
			s.logg.Info(ctx, "payment completed")
		} else {
			// another delivery won the race; re-check where it landed
			payment, err = s.repo.FindByOrderID(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
			}
			if payment.Status != enums.PaymentStatusCompleted {
				s.logg.Warn(ctx, fmt.Sprintf("success notification for %s payment ignored", payment.Status))
				return nil
			}
		}

	case enums.PaymentStatusCompleted:
		if payment.ActivatedAt != nil {
			s.metrics.IncDuplicate(gateway.String())
			s.logg.Info(ctx, "duplicate success notification ignored")
			return nil
		}
		// completed but never activated: an earlier delivery crashed
		// between the transition and the dispatcher; finish the job

	case enums.PaymentStatusFailed, enums.PaymentStatusRefunded:
		s.logg.Warn(ctx, fmt.Sprintf("late success notification for %s payment ignored", payment.Status))
		return nil

	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown payment status %s", payment.Status))
	}

	return s.ensureActivated(ctx, orderID)
}

// ensureActivated runs the dispatcher and stamps activated_at. Returning an
// error here keeps the gateway retrying until activation lands.
func (s *service) ensureActivated(ctx context.Context, orderID string) error {
	var receipt *receipts.Receipt
	var receiptPaymentID uuid.UUID

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment, err := repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		if payment.ActivatedAt != nil {
			return nil
		}

		now := s.now().UTC()
		result, err := s.dispatcher.Activate(ctx, tx, payment, now)
		if err != nil {
			return err
		}
		if result.PartialFailure != nil {
			s.logg.Warn(ctx, fmt.Sprintf("activation partially failed: %v", result.PartialFailure))
		}

		updates := map[string]any{
			"subscription_active":           result.Active,
			"awaiting_submission":           result.AwaitingSubmission,
			"awaiting_vehicle_registration": result.AwaitingVehicleRegistration,
			"awaiting_guide_registration":   result.AwaitingGuideRegistration,
			"activated_at":                  now,
		}
		if result.SubscriptionStart != nil {
			updates["subscription_start"] = *result.SubscriptionStart
		}
		if result.SubscriptionEnd != nil {
			updates["subscription_end"] = *result.SubscriptionEnd
		}
		if len(result.VehicleIDs) > 0 {
			updates["vehicle_ids"] = pq.StringArray(result.VehicleIDs)
		}

		won, err := repo.MarkActivated(ctx, payment.ID, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp activation")
		}
		if won {
			receiptPaymentID = payment.ID
			receipt = &receipts.Receipt{
				UserID:      payment.UserID,
				OrderID:     payment.OrderID,
				ServiceType: payment.ServiceType,
				Amount:      payment.Amount,
				Currency:    payment.Currency,
				Description: payment.Description,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// receipt is best effort and lives outside the transaction
	if receipt != nil {
		if err := s.receipts.SendReceipt(ctx, *receipt); err != nil {
			s.logg.Error(ctx, "send receipt", err)
		} else if err := s.repo.MarkReceiptSent(ctx, receiptPaymentID, s.now().UTC()); err != nil {
			s.logg.Error(ctx, "record receipt delivery", err)
		}
	}
	return nil
}

// MarkFailed handles a verified failure/cancel notification.
func (s *service) MarkFailed(ctx context.Context, orderID, reason string, gateway enums.PaymentGateway) error {
	ctx = s.logg.WithOrderID(ctx, orderID)

	owned, err := s.repo.TransitionFromPending(ctx, orderID, enums.PaymentStatusFailed, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	if !owned {
		payment, err := s.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unknown order id")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		s.logg.Warn(ctx, fmt.Sprintf("failure notification for %s payment ignored", payment.Status))
		return nil
	}

	s.metrics.IncTransition(gateway.String(), enums.PaymentStatusFailed.String())
	s.logg.Info(ctx, fmt.Sprintf("payment failed: %s", reason))
	return nil
}

// MarkRefunded moves a completed payment to refunded and switches the
// subscription off. The entity premium is left to expire naturally.
func (s *service) MarkRefunded(ctx context.Context, orderID string) error {
	ctx = s.logg.WithOrderID(ctx, orderID)

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown order id")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	owned, err := s.repo.TransitionCompletedToRefunded(ctx, orderID, map[string]any{
		"subscription_active": false,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payment")
	}
	if !owned {
		payment, err = s.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		if payment.Status == enums.PaymentStatusRefunded {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot refund %s payment", payment.Status))
	}

	s.metrics.IncTransition(payment.PaymentMethod.String(), enums.PaymentStatusRefunded.String())
	s.logg.Info(ctx, "payment refunded")
	return nil
}

// Reconcile sweeps stuck pending payments and asks the owning gateway what
// actually happened. Per-payment problems are logged and counted as skipped;
// only sweep-level failures abort.
func (s *service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	cutoff := s.now().UTC().Add(-s.reconcilePendingAge)
	pendings, err := s.repo.ListPendingOlderThan(ctx, cutoff, s.reconcileLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stuck payments")
	}

	report := &ReconcileReport{Scanned: len(pendings)}
	if len(pendings) == 0 {
		return report, nil
	}

	var payhereToken string
	var sweepErrs error

	for _, payment := range pendings {
		pctx := s.logg.WithOrderID(ctx, payment.OrderID)

		switch payment.PaymentMethod {
		case enums.PaymentGatewayPayHere:
			if s.payhere == nil {
				report.Skipped++
				continue
			}
			if payhereToken == "" {
				payhereToken, err = s.payhere.AccessToken(ctx)
				if err != nil {
					return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payhere access token")
				}
			}
			outcome, err := s.reconcilePayHere(pctx, payhereToken, payment)
			if err != nil {
				sweepErrs = multierr.Append(sweepErrs, fmt.Errorf("order %s: %w", payment.OrderID, err))
				s.logg.Error(pctx, "reconcile payhere payment", err)
				report.Skipped++
				continue
			}
			applyOutcome(report, outcome)

		case enums.PaymentGatewayStripe:
			if s.stripe == nil {
				report.Skipped++
				continue
			}
			outcome, err := s.reconcileStripe(pctx, payment)
			if err != nil {
				sweepErrs = multierr.Append(sweepErrs, fmt.Errorf("order %s: %w", payment.OrderID, err))
				s.logg.Error(pctx, "reconcile stripe payment", err)
				report.Skipped++
				continue
			}
			applyOutcome(report, outcome)

		default:
			report.Skipped++
		}
	}

	if sweepErrs != nil {
		s.logg.Warn(ctx, fmt.Sprintf("reconcile sweep finished with errors: %v", sweepErrs))
	}
	s.logg.Info(ctx, fmt.Sprintf("reconcile sweep: scanned=%d completed=%d failed=%d skipped=%d",
		report.Scanned, report.Completed, report.Failed, report.Skipped))
	return report, nil
}

type reconcileOutcome int

const (
	outcomeSkipped reconcileOutcome = iota
	outcomeCompleted
	outcomeFailed
)

func applyOutcome(report *ReconcileReport, outcome reconcileOutcome) {
	switch outcome {
	case outcomeCompleted:
		report.Completed++
	case outcomeFailed:
		report.Failed++
	default:
		report.Skipped++
	}
}

func (s *service) reconcilePayHere(ctx context.Context, token string, payment models.Payment) (reconcileOutcome, error) {
	records, err := s.payhere.SearchPayments(ctx, token, payment.OrderID)
	if err != nil {
		return outcomeSkipped, err
	}

	for _, record := range records {
		if record.StatusCode == payhere.StatusCodeSuccess {
			paymentID := fmt.Sprintf("%d", record.PaymentID)
			if err := s.ProcessSuccess(ctx, payment.OrderID, paymentID, enums.PaymentGatewayPayHere); err != nil {
				return outcomeSkipped, err
			}
			return outcomeCompleted, nil
		}
	}

	for _, record := range records {
		switch record.StatusCode {
		case payhere.StatusCodeCanceled, payhere.StatusCodeFailed, payhere.StatusCodeChargedback:
			if err := s.MarkFailed(ctx, payment.OrderID, "gateway reported terminal status "+record.StatusCode, enums.PaymentGatewayPayHere); err != nil {
				return outcomeSkipped, err
			}
			return outcomeFailed, nil
		}
	}

	// no record or still pending at the gateway: leave it for the next sweep
	return outcomeSkipped, nil
}

func (s *service) reconcileStripe(ctx context.Context, payment models.Payment) (reconcileOutcome, error) {
	if payment.GatewayRef == nil || *payment.GatewayRef == "" {
		return outcomeSkipped, nil
	}

	sess, err := s.stripe.GetSession(ctx, *payment.GatewayRef)
	if err != nil {
		return outcomeSkipped, err
	}

	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		paymentID := ""
		if sess.PaymentIntent != nil {
			paymentID = sess.PaymentIntent.ID
		}
		if err := s.ProcessSuccess(ctx, payment.OrderID, paymentID, enums.PaymentGatewayStripe); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCompleted, nil
	}

	if sess.Status == stripe.CheckoutSessionStatusExpired {
		if err := s.MarkFailed(ctx, payment.OrderID, "checkout session expired", enums.PaymentGatewayStripe); err != nil {
			return outcomeSkipped, err
		}
		return outcomeFailed, nil
	}

	return outcomeSkipped, nil
}
