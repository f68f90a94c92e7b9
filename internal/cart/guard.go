package cart

import (
	"fmt"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/money"
)

// Decision is the stock guard verdict for a requested quantity.
type Decision struct {
	Quantity int
	Outcome  enums.QuantityOutcome
	Notice   string
}

// Proceed reports whether a remote mutation should be issued.
func (d Decision) Proceed() bool {
	return d.Outcome == enums.QuantityOutcomeAccepted || d.Outcome == enums.QuantityOutcomeClampedToCeiling
}

// ValidateQuantityChange decides what to do with a requested line quantity
// before any remote call is made. Rejections keep the current quantity.
func ValidateQuantityChange(item Item, requested int) Decision {
	if requested < money.MinQuantity {
		return Decision{Quantity: item.Quantity, Outcome: enums.QuantityOutcomeRejectedBelowMin}
	}
	if item.StockCeiling != nil && *item.StockCeiling < money.MinQuantity {
		return Decision{
			Quantity: item.Quantity,
			Outcome:  enums.QuantityOutcomeRejectedOutOfStock,
			Notice:   OutOfStockNotice(item.displayName()),
		}
	}
	clamped := money.ClampQuantity(requested, money.MinQuantity, item.StockCeiling)
	if clamped != requested {
		return Decision{
			Quantity: clamped,
			Outcome:  enums.QuantityOutcomeClampedToCeiling,
			Notice:   AvailabilityNotice(clamped),
		}
	}
	return Decision{Quantity: requested, Outcome: enums.QuantityOutcomeAccepted}
}

// ValidateAddition guards an append-or-increment. existing is nil when the
// product is not in the cart yet, in which case the server has the final say.
// The returned Quantity is the increment to send.
func ValidateAddition(existing *Item, quantity int) Decision {
	if quantity < money.MinQuantity {
		return Decision{Quantity: 0, Outcome: enums.QuantityOutcomeRejectedBelowMin}
	}
	if existing == nil {
		return Decision{Quantity: quantity, Outcome: enums.QuantityOutcomeAccepted}
	}

	target := ValidateQuantityChange(*existing, existing.Quantity+quantity)
	switch target.Outcome {
	case enums.QuantityOutcomeAccepted:
		return Decision{Quantity: quantity, Outcome: enums.QuantityOutcomeAccepted}
	case enums.QuantityOutcomeClampedToCeiling:
		delta := target.Quantity - existing.Quantity
		if delta < money.MinQuantity {
			return Decision{Quantity: 0, Outcome: enums.QuantityOutcomeRejectedOutOfStock, Notice: target.Notice}
		}
		return Decision{Quantity: delta, Outcome: enums.QuantityOutcomeClampedToCeiling, Notice: target.Notice}
	default:
		return Decision{Quantity: 0, Outcome: target.Outcome, Notice: target.Notice}
	}
}

// AvailabilityNotice is the user-facing message for a clamped quantity.
func AvailabilityNotice(available int) string {
	return fmt.Sprintf("Only %d available", available)
}

// OutOfStockNotice is the user-facing message for a product with no stock left.
func OutOfStockNotice(name string) string {
	return fmt.Sprintf("%s is out of stock", name)
}
