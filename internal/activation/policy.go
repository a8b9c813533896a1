package activation

import (
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

// Target names the kind of entity a purchase applies to.
type Target string

const (
	// TargetVoucher defers the benefit until the buyer submits content.
	TargetVoucher Target = "voucher"
	// TargetGuide upgrades the buyer's newest guide profile.
	TargetGuide Target = "guide"
	// TargetVehicles upgrades every vehicle the buyer owns.
	TargetVehicles Target = "vehicles"
	// TargetListings upgrades every business listing the buyer owns.
	TargetListings Target = "listings"
)

// Policy is one row of the dispatch table: what a service type buys and for
// how long.
type Policy struct {
	Target   Target
	Interval enums.PlanInterval
}

// policies is the single source of truth for activation behavior. Adding a
// purchasable service means adding a row here, not a new code path.
var policies = map[enums.ServiceType]Policy{
	enums.ServiceBusinessListingMonthly: {Target: TargetListings, Interval: enums.PlanIntervalMonthly},
	enums.ServiceBusinessListingYearly:  {Target: TargetListings, Interval: enums.PlanIntervalYearly},
	enums.ServiceVehiclePremiumMonthly:  {Target: TargetVehicles, Interval: enums.PlanIntervalMonthly},
	enums.ServiceVehiclePremiumYearly:   {Target: TargetVehicles, Interval: enums.PlanIntervalYearly},
	enums.ServiceGuidePremiumMonthly:    {Target: TargetGuide, Interval: enums.PlanIntervalMonthly},
	enums.ServiceGuidePremiumYearly:     {Target: TargetGuide, Interval: enums.PlanIntervalYearly},
	enums.ServiceSponsoredBlogPost:      {Target: TargetVoucher},
	enums.ServiceTourPartnership:        {Target: TargetVoucher},
}

// PolicyFor looks up the dispatch row for a service type.
func PolicyFor(serviceType enums.ServiceType) (Policy, bool) {
	p, ok := policies[serviceType]
	return p, ok
}
