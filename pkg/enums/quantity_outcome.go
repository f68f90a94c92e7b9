package enums

import "fmt"

// QuantityOutcome is the decision produced by the stock guard for a requested quantity.
type QuantityOutcome string

const (
	QuantityOutcomeAccepted           QuantityOutcome = "ACCEPTED"
	QuantityOutcomeClampedToCeiling   QuantityOutcome = "CLAMPED_TO_CEILING"
	QuantityOutcomeRejectedBelowMin   QuantityOutcome = "REJECTED_BELOW_MIN"
	QuantityOutcomeRejectedOutOfStock QuantityOutcome = "REJECTED_OUT_OF_STOCK"
)

var validQuantityOutcomes = []QuantityOutcome{
	QuantityOutcomeAccepted,
	QuantityOutcomeClampedToCeiling,
	QuantityOutcomeRejectedBelowMin,
	QuantityOutcomeRejectedOutOfStock,
}

// String implements fmt.Stringer.
func (q QuantityOutcome) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuantityOutcome.
func (q QuantityOutcome) IsValid() bool {
	for _, candidate := range validQuantityOutcomes {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuantityOutcome converts raw input into a QuantityOutcome.
func ParseQuantityOutcome(value string) (QuantityOutcome, error) {
	for _, candidate := range validQuantityOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quantity outcome %q", value)
}
