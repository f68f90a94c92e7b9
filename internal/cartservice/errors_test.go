package cartservice

import (
	"errors"
	"testing"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

func TestToAppErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code pkgerrors.Code
	}{
		{err: OutOfStock(2), code: pkgerrors.CodeStockExceeded},
		{err: NewRemoteError(enums.RemoteErrorKindInvalidVoucher, "Invalid voucher code"), code: pkgerrors.CodeVoucherRejected},
		{err: NewRemoteError(enums.RemoteErrorKindVoucherExpired, "Voucher has expired"), code: pkgerrors.CodeVoucherRejected},
		{err: NewRemoteError(enums.RemoteErrorKindVoucherAlreadyApplied, "Already applied"), code: pkgerrors.CodeVoucherRejected},
		{err: NewRemoteError(enums.RemoteErrorKindNotAuthenticated, "login"), code: pkgerrors.CodeUnauthorized},
		{err: NewRemoteError(enums.RemoteErrorKindNotFound, "gone"), code: pkgerrors.CodeNotFound},
		{err: NewRemoteError(enums.RemoteErrorKindRejected, "Product is not sellable"), code: pkgerrors.CodeValidation},
		{err: Unavailable(errors.New("boom"), "execute cart request"), code: pkgerrors.CodeRemoteUnavailable},
		{err: errors.New("unexpected"), code: pkgerrors.CodeRemoteUnavailable},
	}

	for _, tc := range cases {
		if got := ToAppError(tc.err).Code(); got != tc.code {
			t.Fatalf("%v: expected %s, got %s", tc.err, tc.code, got)
		}
	}
	if ToAppError(nil) != nil {
		t.Fatalf("nil error must map to nil")
	}
}

func TestToAppErrorStockDetails(t *testing.T) {
	appErr := ToAppError(OutOfStock(4))
	details, ok := appErr.Details().(StockDetails)
	if !ok || details.Available != 4 {
		t.Fatalf("unexpected details %+v", appErr.Details())
	}
}

func TestToAppErrorPreservesTypedErrors(t *testing.T) {
	original := pkgerrors.New(pkgerrors.CodeValidation, "bad")
	if ToAppError(original) != original {
		t.Fatalf("typed errors must pass through")
	}
}
