package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/money"
)

// VoucherApplication is a voucher attached to the cart. Value holds the flat
// amount for flat vouchers and percent points for percentage vouchers.
// DiscountAmount is resolved against the subtotal by ComputeAggregate.
type VoucherApplication struct {
	Code           string
	Kind           enums.DiscountKind
	Value          decimal.Decimal
	DiscountAmount decimal.Decimal
	MinimumSpend   *decimal.Decimal
}

// NewVoucherApplication validates the voucher record returned by the cart service.
func NewVoucherApplication(code string, kind enums.DiscountKind, value decimal.Decimal, minimumSpend *decimal.Decimal) (VoucherApplication, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return VoucherApplication{}, pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required")
	}
	if !kind.IsValid() {
		return VoucherApplication{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid voucher discount kind")
	}
	if value.IsNegative() {
		return VoucherApplication{}, pkgerrors.New(pkgerrors.CodeValidation, "voucher value cannot be negative")
	}
	return VoucherApplication{
		Code:         code,
		Kind:         kind,
		Value:        value,
		MinimumSpend: copyDecimalPtr(minimumSpend),
	}, nil
}

// discountFor resolves the discount against a subtotal. Percentage vouchers
// are rounded once; clamping is left to the total.
func (v VoucherApplication) discountFor(subtotal decimal.Decimal) decimal.Decimal {
	switch v.Kind {
	case enums.DiscountKindPercentage:
		return money.Round(subtotal.Mul(money.Percent(v.Value)))
	default:
		return money.Round(v.Value)
	}
}

// BelowMinimumSpend reports whether subtotal no longer meets the voucher's minimum.
func (v VoucherApplication) BelowMinimumSpend(subtotal decimal.Decimal) bool {
	return v.MinimumSpend != nil && subtotal.LessThan(*v.MinimumSpend)
}
