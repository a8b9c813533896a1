package catalog

import (
	"gorm.io/gorm"
)

// The payments core is only allowed a narrow slice of entity writes: premium
// upgrades and voucher redemption flips. Full entity CRUD lives in the
// listings subsystem, so each repository here exposes just the fields the
// activation dispatcher and voucher ledger touch.

// ListingRepository covers business listings.
type ListingRepository struct {
	db *gorm.DB
}

// VehicleRepository covers vehicles.
type VehicleRepository struct {
	db *gorm.DB
}

// GuideRepository covers tour guide profiles.
type GuideRepository struct {
	db *gorm.DB
}

// BlogRepository covers blog posts (sponsored-post voucher target).
type BlogRepository struct {
	db *gorm.DB
}

// TourRepository covers tours (partnership voucher target).
type TourRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func NewGuideRepository(db *gorm.DB) *GuideRepository {
	return &GuideRepository{db: db}
}

func NewBlogRepository(db *gorm.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

func NewTourRepository(db *gorm.DB) *TourRepository {
	return &TourRepository{db: db}
}

// conn picks the transaction when one is supplied, the root handle otherwise.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
