// Package cartservice is the boundary to the remote cart service, the source
// of truth for cart contents. Nothing outside the cart synchronizer calls it.
package cartservice

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
)

// Snapshot is the canonical cart as reported by the remote service. Subtotal
// and Total are the server's figures; the synchronizer recomputes its own.
type Snapshot struct {
	Items    []cart.Item
	Voucher  *cart.VoucherApplication
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// VoucherResult is the outcome of a successful voucher apply. Cart is set
// only when the service returned the canonical cart alongside the voucher.
type VoucherResult struct {
	Voucher cart.VoucherApplication
	Cart    *Snapshot
}

// Remote is the cart service contract for one authenticated session.
// Mutations return the canonical cart when the service includes it, nil
// otherwise. Failures are *RemoteError values, or the context's error when
// ctx ends first.
type Remote interface {
	GetCart(ctx context.Context) (Snapshot, error)
	AddItem(ctx context.Context, productID string, quantity int) (*Snapshot, error)
	UpdateItem(ctx context.Context, productID string, quantity int) (*Snapshot, error)
	RemoveItem(ctx context.Context, productID string) (*Snapshot, error)
	ClearCart(ctx context.Context) error
	ApplyVoucher(ctx context.Context, code string) (VoucherResult, error)
	RemoveVoucher(ctx context.Context) (*Snapshot, error)
	VoucherInfo(ctx context.Context) (*cart.VoucherApplication, error)
}

// Factory binds a Remote to the bearer token of one session.
type Factory interface {
	ForToken(token string) Remote
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(token string) Remote

// ForToken calls fn.
func (fn FactoryFunc) ForToken(token string) Remote {
	return fn(token)
}
