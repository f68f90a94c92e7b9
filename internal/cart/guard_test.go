package cart

import (
	"testing"

	"github.com/angelmondragon/storefront/pkg/enums"
)

func TestValidateQuantityChangeScenarioD(t *testing.T) {
	t.Parallel()

	item := mustItem(t, ItemParams{ProductID: "p-1", UnitPrice: d("10"), Quantity: 1, StockCeiling: intPtr(3)})
	decision := ValidateQuantityChange(item, 5)
	if decision.Outcome != enums.QuantityOutcomeClampedToCeiling {
		t.Fatalf("expected clamped outcome, got %s", decision.Outcome)
	}
	if decision.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", decision.Quantity)
	}
	if decision.Notice != "Only 3 available" {
		t.Fatalf("unexpected notice %q", decision.Notice)
	}
	if !decision.Proceed() {
		t.Fatalf("clamped decisions still proceed")
	}
}

func TestValidateQuantityChangeScenarioE(t *testing.T) {
	t.Parallel()

	item := mustItem(t, ItemParams{ProductID: "p-1", UnitPrice: d("10"), Quantity: 2, StockCeiling: intPtr(3)})
	decision := ValidateQuantityChange(item, 0)
	if decision.Outcome != enums.QuantityOutcomeRejectedBelowMin {
		t.Fatalf("expected rejected outcome, got %s", decision.Outcome)
	}
	if decision.Quantity != 2 {
		t.Fatalf("expected prior quantity preserved, got %d", decision.Quantity)
	}
	if decision.Proceed() {
		t.Fatalf("rejected decisions must not proceed")
	}
}

func TestValidateQuantityChangeOutcomeReflectsClamping(t *testing.T) {
	t.Parallel()

	for ceiling := 1; ceiling <= 8; ceiling++ {
		item := mustItem(t, ItemParams{ProductID: "p", UnitPrice: d("1"), Quantity: 1, StockCeiling: intPtr(ceiling)})
		for q := 1; q <= 12; q++ {
			decision := ValidateQuantityChange(item, q)
			if decision.Quantity < 1 || decision.Quantity > ceiling {
				t.Fatalf("q=%d c=%d escaped range: %d", q, ceiling, decision.Quantity)
			}
			clamped := q > ceiling
			if clamped != (decision.Outcome == enums.QuantityOutcomeClampedToCeiling) {
				t.Fatalf("q=%d c=%d wrong outcome %s", q, ceiling, decision.Outcome)
			}
		}
	}
}

func TestValidateQuantityChangeWithoutCeilingAccepts(t *testing.T) {
	t.Parallel()

	item := mustItem(t, ItemParams{ProductID: "p", UnitPrice: d("1"), Quantity: 1})
	if decision := ValidateQuantityChange(item, 40); decision.Outcome != enums.QuantityOutcomeAccepted || decision.Quantity != 40 {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestValidateQuantityChangeOutOfStock(t *testing.T) {
	t.Parallel()

	item := mustItem(t, ItemParams{ProductID: "p", ProductName: "Kettle", UnitPrice: d("1"), Quantity: 2, StockCeiling: intPtr(0)})
	decision := ValidateQuantityChange(item, 1)
	if decision.Outcome != enums.QuantityOutcomeRejectedOutOfStock {
		t.Fatalf("expected out of stock, got %s", decision.Outcome)
	}
	if decision.Notice != "Kettle is out of stock" {
		t.Fatalf("unexpected notice %q", decision.Notice)
	}
}

func TestValidateAddition(t *testing.T) {
	t.Parallel()

	existing := mustItem(t, ItemParams{ProductID: "p", UnitPrice: d("1"), Quantity: 2, StockCeiling: intPtr(3)})

	if decision := ValidateAddition(nil, 4); decision.Outcome != enums.QuantityOutcomeAccepted || decision.Quantity != 4 {
		t.Fatalf("unknown product should defer to server, got %+v", decision)
	}
	if decision := ValidateAddition(&existing, 0); decision.Outcome != enums.QuantityOutcomeRejectedBelowMin {
		t.Fatalf("expected below min, got %+v", decision)
	}
	if decision := ValidateAddition(&existing, 1); decision.Outcome != enums.QuantityOutcomeAccepted || decision.Quantity != 1 {
		t.Fatalf("expected accepted increment, got %+v", decision)
	}
	decision := ValidateAddition(&existing, 5)
	if decision.Outcome != enums.QuantityOutcomeClampedToCeiling || decision.Quantity != 1 {
		t.Fatalf("expected increment clamped to 1, got %+v", decision)
	}

	full := mustItem(t, ItemParams{ProductID: "p", UnitPrice: d("1"), Quantity: 3, StockCeiling: intPtr(3)})
	decision = ValidateAddition(&full, 1)
	if decision.Outcome != enums.QuantityOutcomeRejectedOutOfStock || decision.Notice != "Only 3 available" {
		t.Fatalf("expected rejection at ceiling, got %+v", decision)
	}
}
