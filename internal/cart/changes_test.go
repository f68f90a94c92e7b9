package cart

import (
	"testing"

	"github.com/angelmondragon/storefront/pkg/enums"
)

func TestDiffDetectsTaggedChanges(t *testing.T) {
	t.Parallel()

	before := ComputeAggregate([]Item{
		mustItem(t, ItemParams{ProductID: "a", ProductName: "Fan", UnitPrice: d("100"), Quantity: 2, StockCeiling: intPtr(5)}),
		mustItem(t, ItemParams{ProductID: "b", UnitPrice: d("10"), Quantity: 1}),
	}, flatVoucher(t, "SAVE20", "20"))
	after := ComputeAggregate([]Item{
		mustItem(t, ItemParams{ProductID: "a", ProductName: "Fan", UnitPrice: d("120"), Quantity: 3, StockCeiling: intPtr(1)}),
		mustItem(t, ItemParams{ProductID: "c", UnitPrice: d("5"), Quantity: 1}),
	}, nil)

	changes := Diff(before, after)
	kinds := map[enums.CartChangeKind]int{}
	for _, change := range changes {
		kinds[change.Kind()]++
	}
	if kinds[enums.CartChangeKindPrice] != 1 || kinds[enums.CartChangeKindStock] != 1 || kinds[enums.CartChangeKindQuantity] != 1 {
		t.Fatalf("unexpected change kinds %v", kinds)
	}
	if kinds[enums.CartChangeKindStatus] != 3 {
		t.Fatalf("expected added, removed, and voucher status changes, got %v", kinds)
	}

	price, ok := changes[0].(PriceChange)
	if !ok || !price.Before.Equal(d("100")) || !price.After.Equal(d("120")) {
		t.Fatalf("expected price change first, got %#v", changes[0])
	}

	records := Records(changes)
	if records[0].Before != "100.00" || records[0].After != "120.00" {
		t.Fatalf("unexpected price record %+v", records[0])
	}
	last := records[len(records)-1]
	if last.Subject != VoucherSubject || last.Before != "SAVE20" || last.After != "" {
		t.Fatalf("unexpected voucher record %+v", last)
	}
}

func TestDiffIdenticalSnapshotsIsEmpty(t *testing.T) {
	t.Parallel()

	agg := ComputeAggregate([]Item{mustItem(t, ItemParams{ProductID: "a", UnitPrice: d("1"), Quantity: 1})}, nil)
	if changes := Diff(agg, agg); len(changes) != 0 {
		t.Fatalf("expected no changes, got %d", len(changes))
	}
}

func TestNoticesForPriceIncreaseAndDepletion(t *testing.T) {
	t.Parallel()

	notices := Notices([]Change{
		PriceChange{ProductID: "a", Name: "Fan", Before: d("100"), After: d("120")},
		PriceChange{ProductID: "b", Name: "Lamp", Before: d("100"), After: d("90")},
		StockChange{ProductID: "a", Name: "Fan", Held: 3, Before: intPtr(5), After: intPtr(2)},
		StockChange{ProductID: "c", Name: "Desk", Held: 1, Before: intPtr(5), After: intPtr(0)},
		StockChange{ProductID: "d", Name: "Mat", Held: 1, Before: intPtr(5), After: intPtr(4)},
	})
	want := []string{
		"Price of Fan changed from ₱100.00 to ₱120.00",
		"Fan: Only 2 available",
		"Desk is out of stock",
	}
	if len(notices) != len(want) {
		t.Fatalf("expected %d notices, got %v", len(want), notices)
	}
	for i := range want {
		if notices[i] != want[i] {
			t.Fatalf("notice %d: expected %q, got %q", i, want[i], notices[i])
		}
	}
}
