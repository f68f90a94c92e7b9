package enums

import "testing"

func TestParseVoucherPolicy(t *testing.T) {
	got, err := ParseVoucherPolicy("drop_below_minimum")
	if err != nil || got != VoucherPolicyDropBelowMinimum {
		t.Fatalf("unexpected parse result %q, %v", got, err)
	}
	if _, err := ParseVoucherPolicy("DROP"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestRemoteErrorKindVoucherRejections(t *testing.T) {
	rejections := map[RemoteErrorKind]bool{
		RemoteErrorKindInvalidVoucher:        true,
		RemoteErrorKindVoucherExpired:        true,
		RemoteErrorKindMinimumSpendNotMet:    true,
		RemoteErrorKindVoucherAlreadyApplied: true,
		RemoteErrorKindOutOfStock:            false,
		RemoteErrorKindNoVoucherApplied:      false,
		RemoteErrorKindUnavailable:           false,
		RemoteErrorKindRejected:              false,
	}
	for kind, want := range rejections {
		if got := kind.IsVoucherRejection(); got != want {
			t.Fatalf("%s: expected %v got %v", kind, want, got)
		}
	}
}

func TestCurrencySymbol(t *testing.T) {
	if CurrencyPHP.Symbol() != "₱" {
		t.Fatalf("unexpected PHP symbol %q", CurrencyPHP.Symbol())
	}
	if Currency("EUR").Symbol() != "EUR " {
		t.Fatalf("expected ISO code fallback, got %q", Currency("EUR").Symbol())
	}
	if _, err := ParseCurrency("EUR"); err == nil {
		t.Fatal("expected EUR to be unsupported")
	}
}

func TestMemberRoleIsValid(t *testing.T) {
	if !MemberRoleCustomer.IsValid() || MemberRole("vendor").IsValid() {
		t.Fatal("unexpected member role validity")
	}
}
