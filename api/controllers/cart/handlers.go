package cart

import (
	"context"
	"net/http"

	cartdto "github.com/angelmondragon/storefront/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cartstore"
	"github.com/angelmondragon/storefront/internal/cartsync"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const productIDParam = "productId"

// Sessions resolves the cart store of the caller's session.
type Sessions interface {
	Acquire(ctx context.Context, session cartstore.Session) (*cartstore.Store, error)
	End(ctx context.Context, sessionID, reason string) bool
}

// CartGet returns the published cart with the loading flag and error slot.
func CartGet(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := acquire(w, r, sessions, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, cartdto.NewState(store.Snapshot()))
	}
}

// CartCount serves the header badge.
func CartCount(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := acquire(w, r, sessions, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, cartdto.Count{ItemCount: store.ItemCount()})
	}
}

func CartRefresh(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return operation(sessions, logg, func(r *http.Request, store *cartstore.Store) (cartsync.Result, error) {
		return store.FetchCart(r.Context()), nil
	})
}

func CartAddItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return operation(sessions, logg, func(r *http.Request, store *cartstore.Store) (cartsync.Result, error) {
		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cartsync.Result{}, err
		}
		productID := validators.SanitizeString(payload.ProductID, 0)
		return store.AddItem(r.Context(), productID, payload.QuantityOrDefault()), nil
	})
}

func CartUpdateItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return operation(sessions, logg, func(r *http.Request, store *cartstore.Store) (cartsync.Result, error) {
		productID, err := validators.PathIdentifier(r, productIDParam)
		if err != nil {
			return cartsync.Result{}, err
		}
		var payload cartdto.UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cartsync.Result{}, err
		}
		return store.UpdateQuantity(r.Context(), productID, *payload.Quantity), nil
	})
}

func CartRemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return operation(sessions, logg, func(r *http.Request, store *cartstore.Store) (cartsync.Result, error) {
		productID, err := validators.PathIdentifier(r, productIDParam)
		if err != nil {
			return cartsync.Result{}, err
		}
		return store.RemoveItem(r.Context(), productID), nil
	})
}

func CartClear(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return operation(sessions, logg, func(r *http.Request, store *cartstore.Store) (cartsync.Result, error) {
		return store.ClearCart(r.Context()), nil
	})
}

func VoucherApply(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return operation(sessions, logg, func(r *http.Request, store *cartstore.Store) (cartsync.Result, error) {
		var payload cartdto.ApplyVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cartsync.Result{}, err
		}
		return store.ApplyVoucher(r.Context(), validators.SanitizeString(payload.Code, 0)), nil
	})
}

func VoucherRemove(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return operation(sessions, logg, func(r *http.Request, store *cartstore.Store) (cartsync.Result, error) {
		return store.RemoveVoucher(r.Context()), nil
	})
}

// VoucherInfo reports the voucher the cart service has attached, if any.
func VoucherInfo(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := acquire(w, r, sessions, logg)
		if !ok {
			return
		}
		voucher, err := store.VoucherInfo(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.VoucherInfo{Voucher: cartdto.NewVoucher(voucher)})
	}
}

// SessionEnd tears down the caller's cart on logout.
func SessionEnd(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}
		ended := sessions.End(r.Context(), sessionID, cartstore.ReasonLogout)
		responses.WriteSuccess(w, cartdto.SessionEnded{Ended: ended})
	}
}

type operationFunc func(r *http.Request, store *cartstore.Store) (cartsync.Result, error)

func operation(sessions Sessions, logg *logger.Logger, fn operationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := acquire(w, r, sessions, logg)
		if !ok {
			return
		}
		res, err := fn(r, store)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if res.Err != nil {
			responses.WriteError(r.Context(), logg, w, res.Err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewOperation(res, store.TakeNotices()))
	}
}

func acquire(w http.ResponseWriter, r *http.Request, sessions Sessions, logg *logger.Logger) (*cartstore.Store, bool) {
	if sessions == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable"))
		return nil, false
	}
	session := cartstore.Session{
		ID:        middleware.SessionIDFromContext(r.Context()),
		AccountID: middleware.AccountIDFromContext(r.Context()),
		Token:     middleware.TokenFromContext(r.Context()),
	}
	if session.ID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
		return nil, false
	}
	store, err := sessions.Acquire(r.Context(), session)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open cart session")
		}
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return store, true
}
