package cartservice

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// RemoteError is a failure reported by, or on the way to, the cart service.
type RemoteError struct {
	Kind      enums.RemoteErrorKind
	Message   string
	Status    int
	Available *int
	Required  *decimal.Decimal
	cause     error
}

// NewRemoteError builds a RemoteError of the given kind.
func NewRemoteError(kind enums.RemoteErrorKind, message string) *RemoteError {
	return &RemoteError{Kind: kind, Message: message}
}

// OutOfStock builds the error the service returns when quantity exceeds stock.
func OutOfStock(available int) *RemoteError {
	return &RemoteError{
		Kind:      enums.RemoteErrorKindOutOfStock,
		Message:   fmt.Sprintf("only %d available", available),
		Available: &available,
	}
}

// MinimumSpendNotMet builds the voucher rejection carrying the required spend.
func MinimumSpendNotMet(required decimal.Decimal) *RemoteError {
	return &RemoteError{
		Kind:     enums.RemoteErrorKindMinimumSpendNotMet,
		Message:  fmt.Sprintf("Minimum spend of %s not met", required.StringFixed(2)),
		Required: &required,
	}
}

// Unavailable wraps a transport failure.
func Unavailable(err error, message string) *RemoteError {
	return &RemoteError{Kind: enums.RemoteErrorKindUnavailable, Message: message, cause: err}
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("cart service %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("cart service %s: %s", e.Kind, e.Message)
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// KindOf returns the remote error kind carried by err, or "" when err is not
// a RemoteError.
func KindOf(err error) enums.RemoteErrorKind {
	var remote *RemoteError
	if stdErrors.As(err, &remote) {
		return remote.Kind
	}
	return ""
}

// AsRemote extracts the RemoteError from err.
func AsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	if stdErrors.As(err, &remote) {
		return remote, true
	}
	return nil, false
}

// StockDetails is attached to STOCK_EXCEEDED errors.
type StockDetails struct {
	ProductID string `json:"product_id,omitempty"`
	Available int    `json:"available"`
}

// VoucherDetails is attached to VOUCHER_REJECTED errors.
type VoucherDetails struct {
	Reason   enums.RemoteErrorKind `json:"reason"`
	Required *decimal.Decimal      `json:"required,omitempty"`
}

// ToAppError maps a remote failure onto the public error taxonomy. Voucher
// rejections keep the service's message verbatim.
func ToAppError(err error) *pkgerrors.Error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart request canceled")
	}

	remote, ok := AsRemote(err)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, pkgerrors.MetadataFor(pkgerrors.CodeRemoteUnavailable).PublicMessage)
	}

	switch {
	case remote.Kind == enums.RemoteErrorKindNotAuthenticated:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session is no longer authenticated")
	case remote.Kind == enums.RemoteErrorKindOutOfStock:
		available := 0
		if remote.Available != nil {
			available = *remote.Available
		}
		return pkgerrors.Wrap(pkgerrors.CodeStockExceeded, err, remote.Message).
			WithDetails(StockDetails{Available: available})
	case remote.Kind.IsVoucherRejection():
		return pkgerrors.Wrap(pkgerrors.CodeVoucherRejected, err, remote.Message).
			WithDetails(VoucherDetails{Reason: remote.Kind, Required: remote.Required})
	case remote.Kind == enums.RemoteErrorKindNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, remote.Message)
	case remote.Kind == enums.RemoteErrorKindNoVoucherApplied:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, remote.Message)
	case remote.Kind == enums.RemoteErrorKindRejected:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, remote.Message)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, pkgerrors.MetadataFor(pkgerrors.CodeRemoteUnavailable).PublicMessage)
	}
}
