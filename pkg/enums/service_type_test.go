package enums

import "testing"

func TestServiceTypeInterval(t *testing.T) {
	yearly := []ServiceType{ServiceBusinessListingYearly, ServiceVehiclePremiumYearly, ServiceGuidePremiumYearly}
	for _, s := range yearly {
		if s.Interval() != PlanIntervalYearly {
			t.Fatalf("%s should be yearly", s)
		}
	}
	if ServiceVehiclePremiumMonthly.Interval() != PlanIntervalMonthly {
		t.Fatal("vehicle monthly should be monthly")
	}
}

func TestServiceTypeVoucherClassification(t *testing.T) {
	if !ServiceSponsoredBlogPost.IsVoucher() || !ServiceTourPartnership.IsVoucher() {
		t.Fatal("content purchases are vouchers")
	}
	if ServiceGuidePremiumMonthly.IsVoucher() {
		t.Fatal("guide premium is not a voucher")
	}
}

func TestParseServiceTypeRejectsUnknown(t *testing.T) {
	if _, err := ParseServiceType("hotel_premium"); err == nil {
		t.Fatal("unknown service type must be rejected")
	}
	parsed, err := ParseServiceType("business_listing_monthly")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != ServiceBusinessListingMonthly {
		t.Fatalf("unexpected value %s", parsed)
	}
}

func TestPlanIntervalMonths(t *testing.T) {
	if PlanIntervalMonthly.Months() != 1 || PlanIntervalYearly.Months() != 12 {
		t.Fatal("unexpected month counts")
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	if PaymentStatusPending.IsTerminal() {
		t.Fatal("pending is not terminal")
	}
	for _, s := range []PaymentStatus{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}
