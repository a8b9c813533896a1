package vouchers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/internal/activation"
	"github.com/tourlanka/tourlanka-backend/internal/payments"
	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

const premiumMaxPhotos = 20

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledger interface {
	WithTx(tx *gorm.DB) payments.Repository
	FindOpenVoucher(ctx context.Context, userID uuid.UUID, serviceType enums.ServiceType, flag string) (*models.Payment, error)
	ListOpenVouchersByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

type blogStore interface {
	FindByIDForUser(ctx context.Context, tx *gorm.DB, postID, userID uuid.UUID) (*models.BlogPost, error)
	MarkSponsored(ctx context.Context, tx *gorm.DB, postID uuid.UUID) error
}

type tourStore interface {
	FindByIDForUser(ctx context.Context, tx *gorm.DB, tourID, userID uuid.UUID) (*models.Tour, error)
	MarkPartner(ctx context.Context, tx *gorm.DB, tourID uuid.UUID) error
}

type vehicleStore interface {
	FindByIDForUser(ctx context.Context, tx *gorm.DB, vehicleID, userID uuid.UUID) (*models.Vehicle, error)
	ApplyPremium(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, updates map[string]any) error
}

type guideStore interface {
	ApplyPremium(ctx context.Context, tx *gorm.DB, guideID uuid.UUID, updates map[string]any) error
}

type listingStore interface {
	FindByIDForUser(ctx context.Context, tx *gorm.DB, listingID, userID uuid.UUID) (*models.BusinessListing, error)
	ApplyPremium(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, updates map[string]any) error
}

// Service is the voucher ledger. A completed payment whose benefit could not
// land immediately stays open under an awaiting flag; this service redeems it
// once the matching entity exists. Redemption is first paid, first served.
type Service interface {
	ListOpen(ctx context.Context, userID uuid.UUID) ([]VoucherView, error)

	RedeemSponsoredBlog(ctx context.Context, userID, postID uuid.UUID) error
	RedeemTourPartnership(ctx context.Context, userID, tourID uuid.UUID) error

	ApplyPendingForVehicle(ctx context.Context, userID, vehicleID uuid.UUID) error
	ApplyPendingForGuide(ctx context.Context, userID, guideID uuid.UUID) error
	ApplyPendingForListing(ctx context.Context, userID, listingID uuid.UUID) error
}

// VoucherView is the API shape of one open voucher.
type VoucherView struct {
	OrderID     string            `json:"order_id"`
	ServiceType enums.ServiceType `json:"service_type"`
	Description string            `json:"description"`
	Awaiting    string            `json:"awaiting"`
	PurchasedAt time.Time         `json:"purchased_at"`
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Ledger   ledger
	Tx       txRunner
	Blogs    blogStore
	Tours    tourStore
	Vehicles vehicleStore
	Guides   guideStore
	Listings listingStore
	Logger   *logger.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

type service struct {
	ledger   ledger
	tx       txRunner
	blogs    blogStore
	tours    tourStore
	vehicles vehicleStore
	guides   guideStore
	listings listingStore
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies and builds the voucher service.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("payment ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Blogs == nil {
		return nil, fmt.Errorf("blog store required")
	}
	if params.Tours == nil {
		return nil, fmt.Errorf("tour store required")
	}
	if params.Vehicles == nil {
		return nil, fmt.Errorf("vehicle store required")
	}
	if params.Guides == nil {
		return nil, fmt.Errorf("guide store required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		ledger:   params.Ledger,
		tx:       params.Tx,
		blogs:    params.Blogs,
		tours:    params.Tours,
		vehicles: params.Vehicles,
		guides:   params.Guides,
		listings: params.Listings,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

func (s *service) ListOpen(ctx context.Context, userID uuid.UUID) ([]VoucherView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	open, err := s.ledger.ListOpenVouchersByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open vouchers")
	}

	views := make([]VoucherView, 0, len(open))
	for _, payment := range open {
		views = append(views, VoucherView{
			OrderID:     payment.OrderID,
			ServiceType: payment.ServiceType,
			Description: payment.Description,
			Awaiting:    awaitingLabel(&payment),
			PurchasedAt: payment.CreatedAt,
		})
	}
	return views, nil
}

func awaitingLabel(payment *models.Payment) string {
	switch {
	case payment.AwaitingSubmission:
		return payments.FlagAwaitingSubmission
	case payment.AwaitingVehicleReg:
		return payments.FlagAwaitingVehicleRegistration
	case payment.AwaitingGuideReg:
		return payments.FlagAwaitingGuideRegistration
	}
	return ""
}

// RedeemSponsoredBlog attaches an open sponsored-post voucher to one of the
// user's blog posts. The entity write and the voucher flip commit together.
func (s *service) RedeemSponsoredBlog(ctx context.Context, userID, postID uuid.UUID) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"post_id": postID.String(),
	})

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)

		voucher, err := repo.FindOpenVoucher(ctx, userID, enums.ServiceSponsoredBlogPost, payments.FlagAwaitingSubmission)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no open sponsored post voucher")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find voucher")
		}

		post, err := s.blogs.FindByIDForUser(ctx, tx, postID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "blog post not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blog post")
		}
		if post.IsSponsored {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "blog post already sponsored")
		}

		if err := s.blogs.MarkSponsored(ctx, tx, post.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark post sponsored")
		}

		consumed, err := repo.ConsumeAwaitingFlag(ctx, voucher.ID, payments.FlagAwaitingSubmission, map[string]any{
			"item_id": post.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume voucher")
		}
		if !consumed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher already redeemed")
		}

		s.logg.Info(ctx, fmt.Sprintf("sponsored post voucher %s redeemed", voucher.OrderID))
		return nil
	})
}

// RedeemTourPartnership attaches an open partnership voucher to one of the
// user's tours.
func (s *service) RedeemTourPartnership(ctx context.Context, userID, tourID uuid.UUID) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"tour_id": tourID.String(),
	})

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)

		voucher, err := repo.FindOpenVoucher(ctx, userID, enums.ServiceTourPartnership, payments.FlagAwaitingSubmission)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no open tour partnership voucher")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find voucher")
		}

		tour, err := s.tours.FindByIDForUser(ctx, tx, tourID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "tour not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tour")
		}
		if tour.IsPartner {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "tour already a partner")
		}

		if err := s.tours.MarkPartner(ctx, tx, tour.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark tour partner")
		}

		consumed, err := repo.ConsumeAwaitingFlag(ctx, voucher.ID, payments.FlagAwaitingSubmission, map[string]any{
			"item_id": tour.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume voucher")
		}
		if !consumed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher already redeemed")
		}

		s.logg.Info(ctx, fmt.Sprintf("tour partnership voucher %s redeemed", voucher.OrderID))
		return nil
	})
}

// ApplyPendingForVehicle upgrades a freshly registered vehicle when its owner
// holds a deferred vehicle premium. Called from the registration flow; having
// no voucher is the normal case and a no-op.
func (s *service) ApplyPendingForVehicle(ctx context.Context, userID, vehicleID uuid.UUID) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID.String(),
		"vehicle_id": vehicleID.String(),
	})

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)

		voucher, err := oldestOpenVoucher(ctx, repo, userID, payments.FlagAwaitingVehicleRegistration,
			enums.ServiceVehiclePremiumMonthly, enums.ServiceVehiclePremiumYearly)
		if err != nil {
			return err
		}
		if voucher == nil {
			return nil
		}

		vehicle, err := s.vehicles.FindByIDForUser(ctx, tx, vehicleID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}

		start := s.now().UTC()
		end := activation.AddCalendarMonths(start, voucher.ServiceType.Interval().Months())

		consumed, err := repo.ConsumeAwaitingFlag(ctx, voucher.ID, payments.FlagAwaitingVehicleRegistration, map[string]any{
			"subscription_active": true,
			"subscription_start":  start,
			"subscription_end":    end,
			"vehicle_ids":         pq.StringArray{vehicle.ID.String()},
			"item_id":             vehicle.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume voucher")
		}
		if !consumed {
			// a concurrent registration claimed it first
			return nil
		}

		if err := s.vehicles.ApplyPremium(ctx, tx, vehicle.ID, map[string]any{
			"is_premium":        true,
			"premium_expiry":    end,
			"featured_status":   true,
			"max_photos":        premiumMaxPhotos,
			"analytics_enabled": true,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply vehicle premium")
		}

		s.logg.Info(ctx, fmt.Sprintf("deferred vehicle premium %s applied until %s", voucher.OrderID, end.Format(time.RFC3339)))
		return nil
	})
}

// ApplyPendingForGuide upgrades a freshly created guide profile when its owner
// holds a deferred guide premium.
func (s *service) ApplyPendingForGuide(ctx context.Context, userID, guideID uuid.UUID) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":  userID.String(),
		"guide_id": guideID.String(),
	})

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)

		voucher, err := oldestOpenVoucher(ctx, repo, userID, payments.FlagAwaitingGuideRegistration,
			enums.ServiceGuidePremiumMonthly, enums.ServiceGuidePremiumYearly)
		if err != nil {
			return err
		}
		if voucher == nil {
			return nil
		}

		start := s.now().UTC()
		end := activation.AddCalendarMonths(start, voucher.ServiceType.Interval().Months())

		consumed, err := repo.ConsumeAwaitingFlag(ctx, voucher.ID, payments.FlagAwaitingGuideRegistration, map[string]any{
			"subscription_active": true,
			"subscription_start":  start,
			"subscription_end":    end,
			"item_id":             guideID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume voucher")
		}
		if !consumed {
			return nil
		}

		if err := s.guides.ApplyPremium(ctx, tx, guideID, map[string]any{
			"is_premium":      true,
			"premium_expiry":  end,
			"featured_status": true,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply guide premium")
		}

		s.logg.Info(ctx, fmt.Sprintf("deferred guide premium %s applied until %s", voucher.OrderID, end.Format(time.RFC3339)))
		return nil
	})
}

// ApplyPendingForListing upgrades a freshly submitted business listing when
// its owner holds a deferred listing subscription, mirroring what immediate
// activation would have done: a paid listing skips the moderation queue but
// gets flagged for a post-hoc review.
func (s *service) ApplyPendingForListing(ctx context.Context, userID, listingID uuid.UUID) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID.String(),
		"listing_id": listingID.String(),
	})

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)

		voucher, err := oldestOpenVoucher(ctx, repo, userID, payments.FlagAwaitingSubmission,
			enums.ServiceBusinessListingMonthly, enums.ServiceBusinessListingYearly)
		if err != nil {
			return err
		}
		if voucher == nil {
			return nil
		}

		listing, err := s.listings.FindByIDForUser(ctx, tx, listingID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}

		start := s.now().UTC()
		end := activation.AddCalendarMonths(start, voucher.ServiceType.Interval().Months())

		consumed, err := repo.ConsumeAwaitingFlag(ctx, voucher.ID, payments.FlagAwaitingSubmission, map[string]any{
			"subscription_active": true,
			"subscription_start":  start,
			"subscription_end":    end,
			"item_id":             listing.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume voucher")
		}
		if !consumed {
			return nil
		}

		updates := map[string]any{
			"is_premium":      true,
			"premium_expiry":  end,
			"featured_status": true,
			"max_photos":      premiumMaxPhotos,
		}
		if listing.Status == enums.ListingStatusPending {
			updates["status"] = enums.ListingStatusApproved
			updates["is_verified"] = true
			updates["needs_review"] = true
		}
		if err := s.listings.ApplyPremium(ctx, tx, listing.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply listing premium")
		}

		s.logg.Info(ctx, fmt.Sprintf("deferred listing subscription %s applied until %s", voucher.OrderID, end.Format(time.RFC3339)))
		return nil
	})
}

// oldestOpenVoucher scans the given service types and returns the earliest
// purchased open voucher, or nil when the user holds none.
func oldestOpenVoucher(ctx context.Context, repo payments.Repository, userID uuid.UUID, flag string, types ...enums.ServiceType) (*models.Payment, error) {
	var oldest *models.Payment
	for _, serviceType := range types {
		voucher, err := repo.FindOpenVoucher(ctx, userID, serviceType, flag)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find voucher")
		}
		if oldest == nil || voucher.CreatedAt.Before(oldest.CreatedAt) {
			oldest = voucher
		}
	}
	return oldest, nil
}
