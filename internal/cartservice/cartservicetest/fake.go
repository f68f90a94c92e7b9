// Package cartservicetest provides an in-memory cart service for tests.
package cartservicetest

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/cartservice"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// Op names a remote operation.
type Op string

const (
	OpGetCart       Op = "get_cart"
	OpAddItem       Op = "add_item"
	OpUpdateItem    Op = "update_item"
	OpRemoveItem    Op = "remove_item"
	OpClearCart     Op = "clear_cart"
	OpApplyVoucher  Op = "apply_voucher"
	OpRemoveVoucher Op = "remove_voucher"
	OpVoucherInfo   Op = "voucher_info"
)

// Product is a catalog entry known to the fake.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	SalePrice *decimal.Decimal
	OnSale    bool
	Stock     *int
	Image     string
}

// Voucher is a redeemable code known to the fake.
type Voucher struct {
	Code         string
	Kind         enums.DiscountKind
	Value        decimal.Decimal
	MinimumSpend *decimal.Decimal
	Expired      bool
}

// Call records one remote invocation.
type Call struct {
	Op        Op
	ProductID string
	Quantity  int
	Code      string
	Token     string
}

// Gate holds back the response of one call. The call's effect is applied
// when it enters; the response is delivered only after Release.
type Gate struct {
	entered  chan struct{}
	released chan struct{}
	once     sync.Once
}

// Entered is closed once the held call has been processed.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets the held call return.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.released) })
}

type line struct {
	productID string
	quantity  int
}

// Fake is a concurrency-safe in-memory cart service for a single cart.
type Fake struct {
	mu              sync.Mutex
	products        map[string]Product
	vouchers        map[string]Voucher
	lines           []line
	voucher         *Voucher
	failures        map[Op][]error
	gates           map[Op][]*Gate
	calls           []Call
	tokens          []string
	returnCart      bool
	unauthenticated bool
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		products: map[string]Product{},
		vouchers: map[string]Voucher{},
		failures: map[Op][]error{},
		gates:    map[Op][]*Gate{},
	}
}

// ForToken implements cartservice.Factory.
func (f *Fake) ForToken(token string) cartservice.Remote {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return &boundFake{fake: f, token: token}
}

// Tokens lists every token the fake was bound to.
func (f *Fake) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

// AddProduct registers a catalog product.
func (f *Fake) AddProduct(p Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

// SetStock changes a product's stock, simulating depletion mid-session.
func (f *Fake) SetStock(productID string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[productID]
	p.Stock = &stock
	f.products[productID] = p
}

// SetPrice changes a product's unit price.
func (f *Fake) SetPrice(productID string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[productID]
	p.Price = price
	f.products[productID] = p
}

// AddVoucher registers a redeemable voucher.
func (f *Fake) AddVoucher(v Voucher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vouchers[v.Code] = v
}

// Seed puts a line straight into the cart without any checks.
func (f *Fake) Seed(productID string, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLine(productID, quantity)
}

// ReturnCanonicalCart makes mutations include the canonical cart.
func (f *Fake) ReturnCanonicalCart(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returnCart = enabled
}

// ExpireSession makes every later call fail with NOT_AUTHENTICATED.
func (f *Fake) ExpireSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthenticated = true
}

// FailNext queues err as the result of the next call to op.
func (f *Fake) FailNext(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// Hold returns a gate for the next call to op.
func (f *Fake) Hold(op Op) *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := &Gate{entered: make(chan struct{}), released: make(chan struct{})}
	f.gates[op] = append(f.gates[op], gate)
	return gate
}

// Calls returns the recorded invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount counts recorded invocations of op.
func (f *Fake) CallCount(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// Quantity returns the server-side quantity of a line, 0 when absent.
func (f *Fake) Quantity(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idx := f.indexOf(productID); idx >= 0 {
		return f.lines[idx].quantity
	}
	return 0
}

// AppliedVoucher returns the attached voucher code, "" when none.
func (f *Fake) AppliedVoucher() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voucher == nil {
		return ""
	}
	return f.voucher.Code
}

// Snapshot returns the canonical cart as the service would report it.
func (f *Fake) Snapshot() cartservice.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

type boundFake struct {
	fake  *Fake
	token string
}

func (b *boundFake) GetCart(ctx context.Context) (cartservice.Snapshot, error) {
	var snapshot cartservice.Snapshot
	err := b.fake.run(ctx, Call{Op: OpGetCart, Token: b.token}, func(f *Fake) error {
		snapshot = f.snapshotLocked()
		return nil
	})
	return snapshot, err
}

func (b *boundFake) AddItem(ctx context.Context, productID string, quantity int) (*cartservice.Snapshot, error) {
	var out *cartservice.Snapshot
	err := b.fake.run(ctx, Call{Op: OpAddItem, ProductID: productID, Quantity: quantity, Token: b.token}, func(f *Fake) error {
		product, ok := f.products[productID]
		if !ok {
			return cartservice.NewRemoteError(enums.RemoteErrorKindNotFound, "Product not found")
		}
		held := 0
		if idx := f.indexOf(productID); idx >= 0 {
			held = f.lines[idx].quantity
		}
		if product.Stock != nil && held+quantity > *product.Stock {
			return cartservice.OutOfStock(*product.Stock)
		}
		f.setLine(productID, held+quantity)
		out = f.mutationResult()
		return nil
	})
	return out, err
}

func (b *boundFake) UpdateItem(ctx context.Context, productID string, quantity int) (*cartservice.Snapshot, error) {
	var out *cartservice.Snapshot
	err := b.fake.run(ctx, Call{Op: OpUpdateItem, ProductID: productID, Quantity: quantity, Token: b.token}, func(f *Fake) error {
		if f.indexOf(productID) < 0 {
			return cartservice.NewRemoteError(enums.RemoteErrorKindNotFound, "Cart item not found")
		}
		if stock := f.products[productID].Stock; stock != nil && quantity > *stock {
			return cartservice.OutOfStock(*stock)
		}
		f.setLine(productID, quantity)
		out = f.mutationResult()
		return nil
	})
	return out, err
}

func (b *boundFake) RemoveItem(ctx context.Context, productID string) (*cartservice.Snapshot, error) {
	var out *cartservice.Snapshot
	err := b.fake.run(ctx, Call{Op: OpRemoveItem, ProductID: productID, Token: b.token}, func(f *Fake) error {
		idx := f.indexOf(productID)
		if idx < 0 {
			return cartservice.NewRemoteError(enums.RemoteErrorKindNotFound, "Cart item not found")
		}
		f.lines = append(f.lines[:idx], f.lines[idx+1:]...)
		out = f.mutationResult()
		return nil
	})
	return out, err
}

func (b *boundFake) ClearCart(ctx context.Context) error {
	return b.fake.run(ctx, Call{Op: OpClearCart, Token: b.token}, func(f *Fake) error {
		f.lines = nil
		f.voucher = nil
		return nil
	})
}

func (b *boundFake) ApplyVoucher(ctx context.Context, code string) (cartservice.VoucherResult, error) {
	var out cartservice.VoucherResult
	err := b.fake.run(ctx, Call{Op: OpApplyVoucher, Code: code, Token: b.token}, func(f *Fake) error {
		v, ok := f.vouchers[code]
		switch {
		case !ok:
			return cartservice.NewRemoteError(enums.RemoteErrorKindInvalidVoucher, "Invalid voucher code")
		case v.Expired:
			return cartservice.NewRemoteError(enums.RemoteErrorKindVoucherExpired, "Voucher has expired")
		case f.voucher != nil:
			return cartservice.NewRemoteError(enums.RemoteErrorKindVoucherAlreadyApplied, "A voucher is already applied")
		}
		subtotal := cart.ComputeAggregate(f.itemsLocked(), nil).Subtotal
		if v.MinimumSpend != nil && subtotal.LessThan(*v.MinimumSpend) {
			return cartservice.MinimumSpendNotMet(*v.MinimumSpend)
		}
		f.voucher = &v
		snapshot := f.snapshotLocked()
		out.Voucher = *snapshot.Voucher
		out.Cart = f.mutationResult()
		return nil
	})
	return out, err
}

func (b *boundFake) RemoveVoucher(ctx context.Context) (*cartservice.Snapshot, error) {
	var out *cartservice.Snapshot
	err := b.fake.run(ctx, Call{Op: OpRemoveVoucher, Token: b.token}, func(f *Fake) error {
		if f.voucher == nil {
			return cartservice.NewRemoteError(enums.RemoteErrorKindNoVoucherApplied, "No voucher applied")
		}
		f.voucher = nil
		out = f.mutationResult()
		return nil
	})
	return out, err
}

func (b *boundFake) VoucherInfo(ctx context.Context) (*cart.VoucherApplication, error) {
	var out *cart.VoucherApplication
	err := b.fake.run(ctx, Call{Op: OpVoucherInfo, Token: b.token}, func(f *Fake) error {
		out = f.snapshotLocked().Voucher
		return nil
	})
	return out, err
}

// run records the call, applies injected failures, executes fn under the
// lock, then waits on any gate registered for the op.
func (f *Fake) run(ctx context.Context, call Call, fn func(*Fake) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	var gate *Gate
	if gates := f.gates[call.Op]; len(gates) > 0 {
		gate = gates[0]
		f.gates[call.Op] = gates[1:]
	}
	var err error
	switch {
	case f.unauthenticated:
		err = cartservice.NewRemoteError(enums.RemoteErrorKindNotAuthenticated, "Not authenticated")
	case len(f.failures[call.Op]) > 0:
		err = f.failures[call.Op][0]
		f.failures[call.Op] = f.failures[call.Op][1:]
	default:
		err = fn(f)
	}
	f.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		select {
		case <-gate.released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *Fake) mutationResult() *cartservice.Snapshot {
	if !f.returnCart {
		return nil
	}
	snapshot := f.snapshotLocked()
	return &snapshot
}

func (f *Fake) snapshotLocked() cartservice.Snapshot {
	var voucher *cart.VoucherApplication
	if f.voucher != nil {
		v, err := cart.NewVoucherApplication(f.voucher.Code, f.voucher.Kind, f.voucher.Value, f.voucher.MinimumSpend)
		if err == nil {
			voucher = &v
		}
	}
	agg := cart.ComputeAggregate(f.itemsLocked(), voucher)
	if agg.Voucher == nil {
		agg.Voucher = voucher
	}
	return cartservice.Snapshot{
		Items:    agg.Items,
		Voucher:  agg.Voucher,
		Subtotal: agg.Subtotal,
		Total:    agg.Total,
	}
}

func (f *Fake) itemsLocked() []cart.Item {
	items := make([]cart.Item, 0, len(f.lines))
	for _, l := range f.lines {
		p := f.products[l.productID]
		item, err := cart.NewItem(cart.ItemParams{
			ProductID:    l.productID,
			ProductName:  p.Name,
			UnitPrice:    p.Price,
			SalePrice:    p.SalePrice,
			SaleActive:   p.OnSale,
			Quantity:     l.quantity,
			StockCeiling: p.Stock,
			Image:        p.Image,
		})
		if err == nil {
			items = append(items, item)
		}
	}
	return items
}

func (f *Fake) indexOf(productID string) int {
	for i, l := range f.lines {
		if l.productID == productID {
			return i
		}
	}
	return -1
}

func (f *Fake) setLine(productID string, quantity int) {
	if idx := f.indexOf(productID); idx >= 0 {
		f.lines[idx].quantity = quantity
		return
	}
	f.lines = append(f.lines, line{productID: productID, quantity: quantity})
}
