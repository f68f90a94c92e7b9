package enums

import "fmt"

// VoucherPolicy controls whether an attached voucher survives a subtotal drop.
type VoucherPolicy string

const (
	VoucherPolicyRetain           VoucherPolicy = "retain"
	VoucherPolicyDropBelowMinimum VoucherPolicy = "drop_below_minimum"
)

var validVoucherPolicies = []VoucherPolicy{
	VoucherPolicyRetain,
	VoucherPolicyDropBelowMinimum,
}

// String implements fmt.Stringer.
func (v VoucherPolicy) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherPolicy.
func (v VoucherPolicy) IsValid() bool {
	for _, candidate := range validVoucherPolicies {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoucherPolicy converts raw input into a VoucherPolicy.
func ParseVoucherPolicy(value string) (VoucherPolicy, error) {
	for _, candidate := range validVoucherPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher policy %q", value)
}
