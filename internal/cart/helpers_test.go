package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func intPtr(v int) *int { return &v }

func mustItem(t *testing.T, params ItemParams) Item {
	t.Helper()
	item, err := NewItem(params)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	return item
}

func flatVoucher(t *testing.T, code, amount string) *VoucherApplication {
	t.Helper()
	v, err := NewVoucherApplication(code, enums.DiscountKindFlat, d(amount), nil)
	if err != nil {
		t.Fatalf("new voucher: %v", err)
	}
	return &v
}

func percentVoucher(t *testing.T, code, points string) *VoucherApplication {
	t.Helper()
	v, err := NewVoucherApplication(code, enums.DiscountKindPercentage, d(points), nil)
	if err != nil {
		t.Fatalf("new voucher: %v", err)
	}
	return &v
}
