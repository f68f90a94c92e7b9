package enums

import "fmt"

// CartEventType enumerates the domain events emitted after cart mutations.
type CartEventType string

const (
	CartEventTypeItemAdded       CartEventType = "cart.item_added"
	CartEventTypeQuantityUpdated CartEventType = "cart.quantity_updated"
	CartEventTypeItemRemoved     CartEventType = "cart.item_removed"
	CartEventTypeCleared         CartEventType = "cart.cleared"
	CartEventTypeVoucherApplied  CartEventType = "cart.voucher_applied"
	CartEventTypeVoucherRemoved  CartEventType = "cart.voucher_removed"
)

var validCartEventTypes = []CartEventType{
	CartEventTypeItemAdded,
	CartEventTypeQuantityUpdated,
	CartEventTypeItemRemoved,
	CartEventTypeCleared,
	CartEventTypeVoucherApplied,
	CartEventTypeVoucherRemoved,
}

// String implements fmt.Stringer.
func (c CartEventType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartEventType.
func (c CartEventType) IsValid() bool {
	for _, candidate := range validCartEventTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartEventType converts raw input into a CartEventType.
func ParseCartEventType(value string) (CartEventType, error) {
	for _, candidate := range validCartEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart event type %q", value)
}
