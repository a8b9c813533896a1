package enums

import "fmt"

// PlanInterval defines the cadence a premium purchase pays for.
type PlanInterval string

const (
	PlanIntervalMonthly PlanInterval = "monthly"
	PlanIntervalYearly  PlanInterval = "yearly"
)

var validPlanIntervals = []PlanInterval{
	PlanIntervalMonthly,
	PlanIntervalYearly,
}

// String implements fmt.Stringer.
func (p PlanInterval) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanInterval.
func (p PlanInterval) IsValid() bool {
	for _, candidate := range validPlanIntervals {
		if candidate == p {
			return true
		}
	}
	return false
}

// Months returns the number of calendar months one billing period covers.
func (p PlanInterval) Months() int {
	if p == PlanIntervalYearly {
		return 12
	}
	return 1
}

// ParsePlanInterval converts raw input into a PlanInterval.
func ParsePlanInterval(value string) (PlanInterval, error) {
	for _, candidate := range validPlanIntervals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan interval %q", value)
}
