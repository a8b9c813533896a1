package enums

import "fmt"

// ServiceType is the closed set of purchasable upgrades. It drives the
// activation dispatcher branching and must stay in sync with the policy table.
type ServiceType string

const (
	ServiceBusinessListingMonthly ServiceType = "business_listing_monthly"
	ServiceBusinessListingYearly  ServiceType = "business_listing_yearly"
	ServiceVehiclePremiumMonthly  ServiceType = "vehicle_premium_monthly"
	ServiceVehiclePremiumYearly   ServiceType = "vehicle_premium_yearly"
	ServiceGuidePremiumMonthly    ServiceType = "guide_premium_monthly"
	ServiceGuidePremiumYearly     ServiceType = "guide_premium_yearly"
	ServiceSponsoredBlogPost      ServiceType = "sponsored_blog_post"
	ServiceTourPartnership        ServiceType = "tour_partnership"
)

var validServiceTypes = []ServiceType{
	ServiceBusinessListingMonthly,
	ServiceBusinessListingYearly,
	ServiceVehiclePremiumMonthly,
	ServiceVehiclePremiumYearly,
	ServiceGuidePremiumMonthly,
	ServiceGuidePremiumYearly,
	ServiceSponsoredBlogPost,
	ServiceTourPartnership,
}

// String implements fmt.Stringer.
func (s ServiceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceType.
func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// Interval returns the billing cadence for recurring service types.
// Voucher types (sponsored blog, tour partnership) are one-shot purchases
// and report monthly only as a placeholder; the dispatcher never reads it.
func (s ServiceType) Interval() PlanInterval {
	switch s {
	case ServiceBusinessListingYearly, ServiceVehiclePremiumYearly, ServiceGuidePremiumYearly:
		return PlanIntervalYearly
	default:
		return PlanIntervalMonthly
	}
}

// IsVoucher reports whether the purchase pays for content that does not
// exist yet and is redeemed at creation time.
func (s ServiceType) IsVoucher() bool {
	return s == ServiceSponsoredBlogPost || s == ServiceTourPartnership
}

// ParseServiceType converts raw input into a ServiceType.
func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}

// ServiceTypes returns every known service type.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, len(validServiceTypes))
	copy(out, validServiceTypes)
	return out
}
