package enums

import "fmt"

// CartChangeKind labels a difference detected between two cart snapshots.
type CartChangeKind string

const (
	CartChangeKindPrice    CartChangeKind = "price_change"
	CartChangeKindStock    CartChangeKind = "stock_change"
	CartChangeKindQuantity CartChangeKind = "quantity_change"
	CartChangeKindStatus   CartChangeKind = "status_change"
)

var validCartChangeKinds = []CartChangeKind{
	CartChangeKindPrice,
	CartChangeKindStock,
	CartChangeKindQuantity,
	CartChangeKindStatus,
}

// String implements fmt.Stringer.
func (c CartChangeKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartChangeKind.
func (c CartChangeKind) IsValid() bool {
	for _, candidate := range validCartChangeKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartChangeKind converts raw input into a CartChangeKind.
func ParseCartChangeKind(value string) (CartChangeKind, error) {
	for _, candidate := range validCartChangeKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart change kind %q", value)
}
