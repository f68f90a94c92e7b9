// Package money holds the scalar helpers used for cart arithmetic. Amounts are
// decimal values in major units; rounding happens only at line, subtotal, and
// total boundaries.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// Places is the number of fractional digits kept for every monetary boundary.
const Places int32 = 2

// MinQuantity is the smallest quantity a cart line may hold.
const MinQuantity = 1

var hundred = decimal.NewFromInt(100)

// Zero returns a zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// Round rounds half away from zero to two fractional digits.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// Cents converts a major-unit amount into rounded minor units.
func Cents(amount decimal.Decimal) int64 {
	return Round(amount).Mul(hundred).IntPart()
}

// Percent converts percent points (10 = 10%) into a rate.
func Percent(points decimal.Decimal) decimal.Decimal {
	return points.Div(hundred)
}

// NonNegative clamps negative amounts to zero.
func NonNegative(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// ClampQuantity forces requested into [min, ceiling]. A nil ceiling means no
// upper bound. min wins over ceiling only when requested is below min.
func ClampQuantity(requested, min int, ceiling *int) int {
	if requested < min {
		return min
	}
	if ceiling != nil && requested > *ceiling {
		return *ceiling
	}
	return requested
}

// Format renders an amount for display in the default storefront currency.
// It is presentation only; never parse the result back into arithmetic.
func Format(amount decimal.Decimal) string {
	return FormatIn(enums.CurrencyPHP, amount)
}

// FormatIn renders an amount with the currency symbol, thousands grouping, and
// two fractional digits, e.g. ₱1,234.50.
func FormatIn(currency enums.Currency, amount decimal.Decimal) string {
	fixed := Round(amount).StringFixed(Places)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + currency.Symbol() + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
