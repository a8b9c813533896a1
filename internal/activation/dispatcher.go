package activation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

const premiumMaxPhotos = 20

// ListingStore is the slice of listing persistence the dispatcher needs.
type ListingStore interface {
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.BusinessListing, error)
	ApplyPremium(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, updates map[string]any) error
}

// VehicleStore is the slice of vehicle persistence the dispatcher needs.
type VehicleStore interface {
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Vehicle, error)
	ApplyPremium(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, updates map[string]any) error
}

// GuideStore is the slice of guide persistence the dispatcher needs.
type GuideStore interface {
	FindNewestByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.TourGuide, error)
	ApplyPremium(ctx context.Context, tx *gorm.DB, guideID uuid.UUID, updates map[string]any) error
}

// Result carries what a completed purchase did to the payment record. Every
// field maps onto a payments column; the caller persists it.
type Result struct {
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	Active            bool

	AwaitingSubmission          bool
	AwaitingVehicleRegistration bool
	AwaitingGuideRegistration   bool

	VehicleIDs []string

	// PartialFailure collects per-entity errors from fan-out targets. The
	// activation still counts as done; failed entities are reported, not
	// retried here.
	PartialFailure error
}

// Awaiting reports whether the benefit was deferred instead of applied.
func (r *Result) Awaiting() bool {
	return r.AwaitingSubmission || r.AwaitingVehicleRegistration || r.AwaitingGuideRegistration
}

// Dispatcher applies the benefit a completed payment paid for. All branches
// are idempotent: re-running an activation converges on the same entity state.
type Dispatcher struct {
	listings ListingStore
	vehicles VehicleStore
	guides   GuideStore
	logg     *logger.Logger
}

// DispatcherParams lists the dependencies for NewDispatcher.
type DispatcherParams struct {
	Listings ListingStore
	Vehicles VehicleStore
	Guides   GuideStore
	Logger   *logger.Logger
}

// NewDispatcher validates dependencies and builds a dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Listings == nil {
		return nil, fmt.Errorf("listing store required")
	}
	if params.Vehicles == nil {
		return nil, fmt.Errorf("vehicle store required")
	}
	if params.Guides == nil {
		return nil, fmt.Errorf("guide store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		listings: params.Listings,
		vehicles: params.Vehicles,
		guides:   params.Guides,
		logg:     params.Logger,
	}, nil
}

// Activate routes a completed payment through the policy table and applies
// the purchased benefit inside the caller's transaction.
func (d *Dispatcher) Activate(ctx context.Context, tx *gorm.DB, payment *models.Payment, now time.Time) (*Result, error) {
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment required")
	}

	policy, ok := PolicyFor(payment.ServiceType)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no activation policy for service type %s", payment.ServiceType))
	}

	ctx = d.logg.WithFields(ctx, map[string]any{
		"order_id":     payment.OrderID,
		"service_type": payment.ServiceType.String(),
		"target":       string(policy.Target),
	})

	switch policy.Target {
	case TargetVoucher:
		d.logg.Info(ctx, "purchase recorded as open voucher")
		return &Result{AwaitingSubmission: true}, nil

	case TargetGuide:
		return d.activateGuide(ctx, tx, payment, policy, now)

	case TargetVehicles:
		return d.activateVehicles(ctx, tx, payment, policy, now)

	case TargetListings:
		return d.activateListings(ctx, tx, payment, policy, now)

	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unhandled activation target %s", policy.Target))
	}
}

func (d *Dispatcher) activateGuide(ctx context.Context, tx *gorm.DB, payment *models.Payment, policy Policy, now time.Time) (*Result, error) {
	guide, err := d.guides.FindNewestByUser(ctx, tx, payment.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			d.logg.Info(ctx, "no guide profile yet, deferring premium")
			return &Result{AwaitingGuideRegistration: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guide profile")
	}

	start, end := subscriptionWindow(now, policy.Interval)
	updates := map[string]any{
		"is_premium":      true,
		"premium_expiry":  end,
		"featured_status": true,
	}
	if err := d.guides.ApplyPremium(ctx, tx, guide.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply guide premium")
	}

	d.logg.Info(ctx, fmt.Sprintf("guide %s upgraded until %s", guide.ID, end.Format(time.RFC3339)))
	return &Result{SubscriptionStart: &start, SubscriptionEnd: &end, Active: true}, nil
}

func (d *Dispatcher) activateVehicles(ctx context.Context, tx *gorm.DB, payment *models.Payment, policy Policy, now time.Time) (*Result, error) {
	vehicles, err := d.vehicles.ListByUser(ctx, tx, payment.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vehicles")
	}
	if len(vehicles) == 0 {
		d.logg.Info(ctx, "no vehicles yet, deferring premium")
		return &Result{AwaitingVehicleRegistration: true}, nil
	}

	start, end := subscriptionWindow(now, policy.Interval)
	updates := map[string]any{
		"is_premium":        true,
		"premium_expiry":    end,
		"featured_status":   true,
		"max_photos":        premiumMaxPhotos,
		"analytics_enabled": true,
	}

	var merr error
	upgraded := make([]string, 0, len(vehicles))
	for _, vehicle := range vehicles {
		if err := d.vehicles.ApplyPremium(ctx, tx, vehicle.ID, updates); err != nil {
			merr = multierr.Append(merr, fmt.Errorf("vehicle %s: %w", vehicle.ID, err))
			continue
		}
		upgraded = append(upgraded, vehicle.ID.String())
	}

	if len(upgraded) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, merr, "upgrade vehicles")
	}
	if merr != nil {
		d.logg.Warn(ctx, fmt.Sprintf("vehicle upgrade partially failed: %v", merr))
	}
	d.logg.Info(ctx, fmt.Sprintf("%d of %d vehicles upgraded until %s", len(upgraded), len(vehicles), end.Format(time.RFC3339)))

	return &Result{
		SubscriptionStart: &start,
		SubscriptionEnd:   &end,
		Active:            true,
		VehicleIDs:        upgraded,
		PartialFailure:    merr,
	}, nil
}

func (d *Dispatcher) activateListings(ctx context.Context, tx *gorm.DB, payment *models.Payment, policy Policy, now time.Time) (*Result, error) {
	listings, err := d.listings.ListByUser(ctx, tx, payment.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list business listings")
	}
	if len(listings) == 0 {
		d.logg.Info(ctx, "no listings yet, deferring premium")
		return &Result{AwaitingSubmission: true}, nil
	}

	start, end := subscriptionWindow(now, policy.Interval)
	for _, listing := range listings {
		updates := map[string]any{
			"is_premium":      true,
			"premium_expiry":  end,
			"featured_status": true,
			"max_photos":      premiumMaxPhotos,
		}
		// paid listings skip the moderation queue but get flagged for
		// a post-hoc review
		if listing.Status == enums.ListingStatusPending {
			updates["status"] = enums.ListingStatusApproved
			updates["is_verified"] = true
			updates["needs_review"] = true
		}
		if err := d.listings.ApplyPremium(ctx, tx, listing.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply listing premium")
		}
	}

	d.logg.Info(ctx, fmt.Sprintf("%d listings upgraded until %s", len(listings), end.Format(time.RFC3339)))
	return &Result{SubscriptionStart: &start, SubscriptionEnd: &end, Active: true}, nil
}

func subscriptionWindow(now time.Time, interval enums.PlanInterval) (time.Time, time.Time) {
	start := now.UTC()
	return start, AddCalendarMonths(start, interval.Months())
}
