package cart

import (
	"github.com/shopspring/decimal"
)

// Aggregate is a complete cart snapshot. It is replaced wholesale on every
// change and never mutated in place once published.
type Aggregate struct {
	Items    []Item
	Subtotal decimal.Decimal
	Voucher  *VoucherApplication
	Total    decimal.Decimal
}

// Empty returns the aggregate used at session start, after clear, and after logout.
func Empty() Aggregate {
	return Aggregate{Items: []Item{}, Subtotal: decimal.Zero, Total: decimal.Zero}
}

// IsEmpty reports whether the cart holds no lines.
func (a Aggregate) IsEmpty() bool {
	return len(a.Items) == 0
}

// ItemCount is the sum of quantities across lines, used for badge display.
func (a Aggregate) ItemCount() int {
	count := 0
	for _, item := range a.Items {
		count += item.Quantity
	}
	return count
}

// Find returns the line for productID.
func (a Aggregate) Find(productID string) (Item, bool) {
	for _, item := range a.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// Discount is the amount actually taken off the subtotal after clamping.
func (a Aggregate) Discount() decimal.Decimal {
	return a.Subtotal.Sub(a.Total)
}

// WithVoucher recomputes the aggregate with a different voucher.
func (a Aggregate) WithVoucher(voucher *VoucherApplication) Aggregate {
	return ComputeAggregate(a.Items, voucher)
}
