package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/money"
)

// ComputeAggregate derives subtotal, voucher discount, and total from items.
// It copies its inputs, so the result shares no memory with the caller.
func ComputeAggregate(items []Item, voucher *VoucherApplication) Aggregate {
	if len(items) == 0 {
		return Empty()
	}

	lines := make([]Item, len(items))
	copy(lines, items)

	subtotal := decimal.Zero
	for _, item := range lines {
		subtotal = subtotal.Add(item.LineSubtotal())
	}
	subtotal = money.Round(subtotal)

	agg := Aggregate{
		Items:    lines,
		Subtotal: subtotal,
		Total:    subtotal,
	}
	if voucher == nil {
		return agg
	}

	applied := *voucher
	applied.MinimumSpend = copyDecimalPtr(voucher.MinimumSpend)
	applied.DiscountAmount = applied.discountFor(subtotal)
	agg.Voucher = &applied
	agg.Total = money.Round(money.NonNegative(subtotal.Sub(applied.DiscountAmount)))
	return agg
}
