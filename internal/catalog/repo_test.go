package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tourlanka/tourlanka-backend/pkg/db/models"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	listings := `
CREATE TABLE IF NOT EXISTS business_listings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  is_verified INTEGER NOT NULL DEFAULT 0,
  needs_review INTEGER NOT NULL DEFAULT 0,
  is_premium INTEGER NOT NULL DEFAULT 0,
  premium_expiry DATETIME,
  featured_status INTEGER NOT NULL DEFAULT 0,
  max_photos INTEGER NOT NULL DEFAULT 5,
  created_at DATETIME,
  updated_at DATETIME
);`
	vehicles := `
CREATE TABLE IF NOT EXISTS vehicles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  registration_no TEXT NOT NULL,
  is_premium INTEGER NOT NULL DEFAULT 0,
  premium_expiry DATETIME,
  featured_status INTEGER NOT NULL DEFAULT 0,
  max_photos INTEGER NOT NULL DEFAULT 5,
  analytics_enabled INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	guides := `
CREATE TABLE IF NOT EXISTS tour_guides (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  display_name TEXT NOT NULL,
  is_premium INTEGER NOT NULL DEFAULT 0,
  premium_expiry DATETIME,
  featured_status INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	blogs := `
CREATE TABLE IF NOT EXISTS blog_posts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  is_sponsored INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	tours := `
CREATE TABLE IF NOT EXISTS tours (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  is_partner INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, ddl := range []string{listings, vehicles, guides, blogs, tours} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func TestListingRepositoryListAndApply(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewListingRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	first := &models.BusinessListing{ID: uuid.New(), UserID: userID, Name: "Colombo Cafe", Status: enums.ListingStatusPending}
	second := &models.BusinessListing{ID: uuid.New(), UserID: userID, Name: "Galle Villa", Status: enums.ListingStatusApproved}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)
	require.NoError(t, db.Create(&models.BusinessListing{ID: uuid.New(), UserID: uuid.New(), Name: "Other"}).Error)

	listings, err := repo.ListByUser(ctx, nil, userID)
	require.NoError(t, err)
	assert.Len(t, listings, 2)

	expiry := time.Now().AddDate(0, 1, 0).UTC()
	err = repo.ApplyPremium(ctx, nil, first.ID, map[string]any{
		"is_premium":      true,
		"premium_expiry":  expiry,
		"featured_status": true,
		"max_photos":      20,
		"status":          enums.ListingStatusApproved,
		"is_verified":     true,
		"needs_review":    true,
	})
	require.NoError(t, err)

	var reloaded models.BusinessListing
	require.NoError(t, db.Where("id = ?", first.ID).First(&reloaded).Error)
	assert.True(t, reloaded.IsPremium)
	assert.True(t, reloaded.IsVerified)
	assert.True(t, reloaded.NeedsReview)
	assert.Equal(t, enums.ListingStatusApproved, reloaded.Status)
	assert.Equal(t, 20, reloaded.MaxPhotos)
	require.NotNil(t, reloaded.PremiumExpiry)
}

func TestVehicleRepositoryApplyPremium(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewVehicleRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	vehicle := &models.Vehicle{ID: uuid.New(), UserID: userID, RegistrationNo: "CAB-1234"}
	require.NoError(t, db.Create(vehicle).Error)

	vehicles, err := repo.ListByUser(ctx, nil, userID)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	err = repo.ApplyPremium(ctx, nil, vehicle.ID, map[string]any{
		"is_premium":        true,
		"analytics_enabled": true,
		"max_photos":        20,
	})
	require.NoError(t, err)

	found, err := repo.FindByIDForUser(ctx, nil, vehicle.ID, userID)
	require.NoError(t, err)
	assert.True(t, found.IsPremium)
	assert.True(t, found.AnalyticsEnabled)
	assert.Equal(t, 20, found.MaxPhotos)

	_, err = repo.FindByIDForUser(ctx, nil, vehicle.ID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGuideRepositoryFindNewest(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGuideRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	older := &models.TourGuide{ID: uuid.New(), UserID: userID, DisplayName: "Old Profile", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &models.TourGuide{ID: uuid.New(), UserID: userID, DisplayName: "New Profile", CreatedAt: time.Now()}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Create(newer).Error)

	found, err := repo.FindNewestByUser(ctx, nil, userID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, found.ID)

	_, err = repo.FindNewestByUser(ctx, nil, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.ApplyPremium(ctx, nil, newer.ID, map[string]any{"is_premium": true}))
	var reloaded models.TourGuide
	require.NoError(t, db.Where("id = ?", newer.ID).First(&reloaded).Error)
	assert.True(t, reloaded.IsPremium)
}

func TestBlogRepositoryMarkSponsored(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewBlogRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	post := &models.BlogPost{ID: uuid.New(), UserID: userID, Title: "Hidden beaches"}
	require.NoError(t, db.Create(post).Error)

	found, err := repo.FindByIDForUser(ctx, nil, post.ID, userID)
	require.NoError(t, err)
	assert.False(t, found.IsSponsored)

	require.NoError(t, repo.MarkSponsored(ctx, nil, post.ID))

	found, err = repo.FindByIDForUser(ctx, nil, post.ID, userID)
	require.NoError(t, err)
	assert.True(t, found.IsSponsored)
}

func TestTourRepositoryMarkPartner(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewTourRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	tour := &models.Tour{ID: uuid.New(), UserID: userID, Title: "Ella three-day hike"}
	require.NoError(t, db.Create(tour).Error)

	require.NoError(t, repo.MarkPartner(ctx, nil, tour.ID))

	found, err := repo.FindByIDForUser(ctx, nil, tour.ID, userID)
	require.NoError(t, err)
	assert.True(t, found.IsPartner)
}
