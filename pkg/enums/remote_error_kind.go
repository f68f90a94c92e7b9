package enums

import "fmt"

// RemoteErrorKind is the error code reported by the remote cart service.
type RemoteErrorKind string

const (
	RemoteErrorKindOutOfStock            RemoteErrorKind = "OUT_OF_STOCK"
	RemoteErrorKindNotFound              RemoteErrorKind = "NOT_FOUND"
	RemoteErrorKindInvalidVoucher        RemoteErrorKind = "INVALID_VOUCHER"
	RemoteErrorKindVoucherExpired        RemoteErrorKind = "VOUCHER_EXPIRED"
	RemoteErrorKindMinimumSpendNotMet    RemoteErrorKind = "MINIMUM_SPEND_NOT_MET"
	RemoteErrorKindVoucherAlreadyApplied RemoteErrorKind = "VOUCHER_ALREADY_APPLIED"
	RemoteErrorKindNoVoucherApplied      RemoteErrorKind = "NO_VOUCHER_APPLIED"
	RemoteErrorKindNotAuthenticated      RemoteErrorKind = "NOT_AUTHENTICATED"
	RemoteErrorKindRejected              RemoteErrorKind = "REJECTED"
	RemoteErrorKindUnavailable           RemoteErrorKind = "UNAVAILABLE"
)

var validRemoteErrorKinds = []RemoteErrorKind{
	RemoteErrorKindOutOfStock,
	RemoteErrorKindNotFound,
	RemoteErrorKindInvalidVoucher,
	RemoteErrorKindVoucherExpired,
	RemoteErrorKindMinimumSpendNotMet,
	RemoteErrorKindVoucherAlreadyApplied,
	RemoteErrorKindNoVoucherApplied,
	RemoteErrorKindNotAuthenticated,
	RemoteErrorKindRejected,
	RemoteErrorKindUnavailable,
}

// String implements fmt.Stringer.
func (k RemoteErrorKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is recognized.
func (k RemoteErrorKind) IsValid() bool {
	for _, candidate := range validRemoteErrorKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsVoucherRejection reports whether the kind is one of the voucher apply failures.
func (k RemoteErrorKind) IsVoucherRejection() bool {
	switch k {
	case RemoteErrorKindInvalidVoucher, RemoteErrorKindVoucherExpired, RemoteErrorKindMinimumSpendNotMet, RemoteErrorKindVoucherAlreadyApplied:
		return true
	default:
		return false
	}
}

// ParseRemoteErrorKind converts a raw string into a RemoteErrorKind.
func ParseRemoteErrorKind(value string) (RemoteErrorKind, error) {
	for _, candidate := range validRemoteErrorKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid remote error kind %q", value)
}
