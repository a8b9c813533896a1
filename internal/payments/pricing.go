package payments

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

// DefaultCurrency is the settlement currency for all catalog prices.
const DefaultCurrency = "LKR"

type catalogEntry struct {
	amount decimal.Decimal
	label  string
}

// priceCatalog fixes the amount charged per service type. Prices are in LKR.
var priceCatalog = map[enums.ServiceType]catalogEntry{
	enums.ServiceBusinessListingMonthly: {amount: decimal.NewFromInt(4990), label: "Business Listing Premium (monthly)"},
	enums.ServiceBusinessListingYearly:  {amount: decimal.NewFromInt(49900), label: "Business Listing Premium (yearly)"},
	enums.ServiceVehiclePremiumMonthly:  {amount: decimal.NewFromInt(2990), label: "Vehicle Premium (monthly)"},
	enums.ServiceVehiclePremiumYearly:   {amount: decimal.NewFromInt(29900), label: "Vehicle Premium (yearly)"},
	enums.ServiceGuidePremiumMonthly:    {amount: decimal.NewFromInt(1990), label: "Guide Premium (monthly)"},
	enums.ServiceGuidePremiumYearly:     {amount: decimal.NewFromInt(19900), label: "Guide Premium (yearly)"},
	enums.ServiceSponsoredBlogPost:      {amount: decimal.NewFromInt(9990), label: "Sponsored Blog Post"},
	enums.ServiceTourPartnership:        {amount: decimal.NewFromInt(14990), label: "Tour Partnership"},
}

// PriceFor returns the configured amount, currency and display label for a
// purchasable service type.
func PriceFor(serviceType enums.ServiceType) (decimal.Decimal, string, string, error) {
	entry, ok := priceCatalog[serviceType]
	if !ok {
		return decimal.Zero, "", "", fmt.Errorf("no price configured for service type %q", serviceType)
	}
	return entry.amount, DefaultCurrency, entry.label, nil
}
