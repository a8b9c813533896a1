package activation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

type stubListingStore struct {
	listings []models.BusinessListing
	listErr  error
	applied  map[uuid.UUID]map[string]any
	applyErr error
}

func (s *stubListingStore) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.BusinessListing, error) {
	return s.listings, s.listErr
}

func (s *stubListingStore) ApplyPremium(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, updates map[string]any) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	if s.applied == nil {
		s.applied = map[uuid.UUID]map[string]any{}
	}
	s.applied[listingID] = updates
	return nil
}

type stubVehicleStore struct {
	vehicles []models.Vehicle
	listErr  error
	applied  map[uuid.UUID]map[string]any
	failIDs  map[uuid.UUID]error
}

func (s *stubVehicleStore) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.Vehicle, error) {
	return s.vehicles, s.listErr
}

func (s *stubVehicleStore) ApplyPremium(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, updates map[string]any) error {
	if err, ok := s.failIDs[vehicleID]; ok {
		return err
	}
	if s.applied == nil {
		s.applied = map[uuid.UUID]map[string]any{}
	}
	s.applied[vehicleID] = updates
	return nil
}

type stubGuideStore struct {
	guide    *models.TourGuide
	findErr  error
	applied  map[uuid.UUID]map[string]any
	applyErr error
}

func (s *stubGuideStore) FindNewestByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.TourGuide, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.guide == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.guide, nil
}

func (s *stubGuideStore) ApplyPremium(ctx context.Context, tx *gorm.DB, guideID uuid.UUID, updates map[string]any) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	if s.applied == nil {
		s.applied = map[uuid.UUID]map[string]any{}
	}
	s.applied[guideID] = updates
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newTestDispatcher(t *testing.T, listings *stubListingStore, vehicles *stubVehicleStore, guides *stubGuideStore) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Listings: listings,
		Vehicles: vehicles,
		Guides:   guides,
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func paymentFor(serviceType enums.ServiceType) *models.Payment {
	return &models.Payment{
		ID:          uuid.New(),
		OrderID:     "TL-" + uuid.NewString(),
		UserID:      uuid.New(),
		ServiceType: serviceType,
	}
}

func TestActivateVoucherDefersBenefit(t *testing.T) {
	d := newTestDispatcher(t, &stubListingStore{}, &stubVehicleStore{}, &stubGuideStore{})

	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceSponsoredBlogPost), time.Now())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.AwaitingSubmission {
		t.Fatal("voucher purchase must set awaiting submission")
	}
	if res.Active {
		t.Fatal("voucher purchase must not start a subscription")
	}
}

func TestActivateGuideUpgradesNewestProfile(t *testing.T) {
	guide := &models.TourGuide{ID: uuid.New()}
	guides := &stubGuideStore{guide: guide}
	d := newTestDispatcher(t, &stubListingStore{}, &stubVehicleStore{}, guides)

	now := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)
	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceGuidePremiumMonthly), now)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.Active {
		t.Fatal("expected active subscription")
	}
	if res.SubscriptionEnd == nil {
		t.Fatal("expected subscription end")
	}
	want := time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)
	if !res.SubscriptionEnd.Equal(want) {
		t.Fatalf("expiry not clamped: got %v want %v", res.SubscriptionEnd, want)
	}
	if _, ok := guides.applied[guide.ID]; !ok {
		t.Fatal("guide premium not applied")
	}
}

func TestActivateGuideDefersWhenNoProfile(t *testing.T) {
	d := newTestDispatcher(t, &stubListingStore{}, &stubVehicleStore{}, &stubGuideStore{})

	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceGuidePremiumYearly), time.Now())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.AwaitingGuideRegistration {
		t.Fatal("expected deferred guide premium")
	}
	if res.Active {
		t.Fatal("deferred purchase must not be active")
	}
}

func TestActivateVehiclesUpgradesAllOwned(t *testing.T) {
	v1 := models.Vehicle{ID: uuid.New()}
	v2 := models.Vehicle{ID: uuid.New()}
	vehicles := &stubVehicleStore{vehicles: []models.Vehicle{v1, v2}}
	d := newTestDispatcher(t, &stubListingStore{}, vehicles, &stubGuideStore{})

	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceVehiclePremiumYearly), time.Now())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.Active {
		t.Fatal("expected active subscription")
	}
	if len(res.VehicleIDs) != 2 {
		t.Fatalf("expected two upgraded vehicles, got %d", len(res.VehicleIDs))
	}
	updates := vehicles.applied[v1.ID]
	if updates["analytics_enabled"] != true {
		t.Fatal("analytics not enabled on upgrade")
	}
	if updates["max_photos"] != premiumMaxPhotos {
		t.Fatalf("max photos not bumped: %v", updates["max_photos"])
	}
}

func TestActivateVehiclesPartialFailureKeepsActivation(t *testing.T) {
	v1 := models.Vehicle{ID: uuid.New()}
	v2 := models.Vehicle{ID: uuid.New()}
	vehicles := &stubVehicleStore{
		vehicles: []models.Vehicle{v1, v2},
		failIDs:  map[uuid.UUID]error{v2.ID: errors.New("row locked")},
	}
	d := newTestDispatcher(t, &stubListingStore{}, vehicles, &stubGuideStore{})

	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceVehiclePremiumMonthly), time.Now())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.Active {
		t.Fatal("partial failure must not deactivate the purchase")
	}
	if len(res.VehicleIDs) != 1 || res.VehicleIDs[0] != v1.ID.String() {
		t.Fatalf("unexpected upgraded ids %v", res.VehicleIDs)
	}
	if res.PartialFailure == nil {
		t.Fatal("expected partial failure to be reported")
	}
}

func TestActivateVehiclesAllFailedReturnsError(t *testing.T) {
	v1 := models.Vehicle{ID: uuid.New()}
	vehicles := &stubVehicleStore{
		vehicles: []models.Vehicle{v1},
		failIDs:  map[uuid.UUID]error{v1.ID: errors.New("row locked")},
	}
	d := newTestDispatcher(t, &stubListingStore{}, vehicles, &stubGuideStore{})

	if _, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceVehiclePremiumMonthly), time.Now()); err == nil {
		t.Fatal("expected error when every vehicle upgrade fails")
	}
}

func TestActivateVehiclesDefersWhenNoneOwned(t *testing.T) {
	d := newTestDispatcher(t, &stubListingStore{}, &stubVehicleStore{}, &stubGuideStore{})

	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceVehiclePremiumMonthly), time.Now())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.AwaitingVehicleRegistration {
		t.Fatal("expected deferred vehicle premium")
	}
}

func TestActivateListingsAutoApprovesPending(t *testing.T) {
	pending := models.BusinessListing{ID: uuid.New(), Status: enums.ListingStatusPending}
	approved := models.BusinessListing{ID: uuid.New(), Status: enums.ListingStatusApproved}
	listings := &stubListingStore{listings: []models.BusinessListing{pending, approved}}
	d := newTestDispatcher(t, listings, &stubVehicleStore{}, &stubGuideStore{})

	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceBusinessListingYearly), time.Now())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.Active {
		t.Fatal("expected active subscription")
	}

	pendingUpdates := listings.applied[pending.ID]
	if pendingUpdates["status"] != enums.ListingStatusApproved {
		t.Fatal("pending listing not auto-approved")
	}
	if pendingUpdates["needs_review"] != true {
		t.Fatal("auto-approved listing must be flagged for review")
	}

	approvedUpdates := listings.applied[approved.ID]
	if _, ok := approvedUpdates["status"]; ok {
		t.Fatal("already approved listing must not change status")
	}
	if approvedUpdates["is_premium"] != true {
		t.Fatal("approved listing not upgraded")
	}
}

func TestActivateListingsDefersWhenNoneExist(t *testing.T) {
	d := newTestDispatcher(t, &stubListingStore{}, &stubVehicleStore{}, &stubGuideStore{})

	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceBusinessListingMonthly), time.Now())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.AwaitingSubmission {
		t.Fatal("expected deferred listing premium")
	}
}

func TestActivateYearlyIsTwelveMonths(t *testing.T) {
	guide := &models.TourGuide{ID: uuid.New()}
	d := newTestDispatcher(t, &stubListingStore{}, &stubVehicleStore{}, &stubGuideStore{guide: guide})

	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	res, err := d.Activate(context.Background(), nil, paymentFor(enums.ServiceGuidePremiumYearly), now)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	want := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	if !res.SubscriptionEnd.Equal(want) {
		t.Fatalf("yearly expiry: got %v want %v", res.SubscriptionEnd, want)
	}
}

func TestActivateUnknownServiceType(t *testing.T) {
	d := newTestDispatcher(t, &stubListingStore{}, &stubVehicleStore{}, &stubGuideStore{})
	if _, err := d.Activate(context.Background(), nil, paymentFor("mystery"), time.Now()); err == nil {
		t.Fatal("expected error for unknown service type")
	}
}
