// Package cartstore owns the per-session cart: the published aggregate, the
// loading flag, and the error slot, plus the registry that ties each store
// to an authenticated session.
package cartstore

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/cartevents"
	"github.com/angelmondragon/storefront/internal/cartservice"
	"github.com/angelmondragon/storefront/internal/cartsync"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// View is a read-only copy of a store's state.
type View struct {
	Aggregate cart.Aggregate
	ItemCount int
	Loading   bool
	Err       *pkgerrors.Error
	State     enums.SyncState
	Notices   []string
}

// Params configure a Store.
type Params struct {
	SessionID string
	AccountID string
	Remote    cartservice.Remote
	Policy    enums.VoucherPolicy
	Events    cartevents.Publisher
	Metrics   *metrics.CartMetrics
	Logger    *logger.Logger
	Now       func() time.Time

	// OnUnauthenticated is called after any operation the cart service
	// refused with NOT_AUTHENTICATED.
	OnUnauthenticated func(ctx context.Context, sessionID string)
}

// Store is the only path from the storefront to the remote cart service.
type Store struct {
	id        string
	accountID string
	sync      *cartsync.Synchronizer
	now       func() time.Time
	onUnauth  func(context.Context, string)

	mu       sync.RWMutex
	agg      cart.Aggregate
	notices  []string
	loading  int
	err      *pkgerrors.Error
	lastUsed time.Time
	closed   bool

	startOnce sync.Once
	started   cartsync.Result
}

// New builds a Store. Call Start before serving its snapshot.
func New(params Params) *Store {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{
		id:        params.SessionID,
		accountID: params.AccountID,
		now:       now,
		onUnauth:  params.OnUnauthenticated,
		agg:       cart.Empty(),
		lastUsed:  now(),
	}
	s.sync = cartsync.New(params.Remote, s, cartsync.Options{
		SessionID: params.SessionID,
		AccountID: params.AccountID,
		Policy:    params.Policy,
		Events:    params.Events,
		Metrics:   params.Metrics,
		Logger:    params.Logger,
	})
	return s
}

// ID returns the session ID the store belongs to.
func (s *Store) ID() string { return s.id }

// AccountID returns the account that owns the cart.
func (s *Store) AccountID() string { return s.accountID }

// Start performs the session's initial fetch. Later calls return the first
// call's result without contacting the service.
func (s *Store) Start(ctx context.Context) cartsync.Result {
	s.startOnce.Do(func() {
		s.started = s.run(ctx, s.sync.FetchCart)
	})
	return s.started
}

// Current implements cartsync.Sink.
func (s *Store) Current() cart.Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agg
}

// Publish implements cartsync.Sink. The aggregate is replaced wholesale and
// price or stock changes the customer must see become notices.
func (s *Store) Publish(agg cart.Aggregate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if notices := cart.Notices(cart.Diff(s.agg, agg)); len(notices) > 0 {
		s.notices = notices
	}
	s.agg = agg
}

// Snapshot returns the store's current state. Pending notices are handed out
// once.
func (s *Store) Snapshot() View {
	state := s.sync.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	view := View{
		Aggregate: s.agg,
		ItemCount: s.agg.ItemCount(),
		Loading:   s.loading > 0,
		Err:       s.err,
		State:     state,
		Notices:   s.notices,
	}
	s.notices = nil
	return view
}

// TakeNotices hands out pending notices without the rest of the view.
func (s *Store) TakeNotices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices := s.notices
	s.notices = nil
	return notices
}

// ItemCount is the badge value.
func (s *Store) ItemCount() int {
	return s.Current().ItemCount()
}

func (s *Store) FetchCart(ctx context.Context) cartsync.Result {
	return s.run(ctx, s.sync.FetchCart)
}

func (s *Store) AddItem(ctx context.Context, productID string, quantity int) cartsync.Result {
	return s.run(ctx, func(ctx context.Context) cartsync.Result {
		return s.sync.AddItem(ctx, productID, quantity)
	})
}

func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) cartsync.Result {
	return s.run(ctx, func(ctx context.Context) cartsync.Result {
		return s.sync.UpdateQuantity(ctx, productID, quantity)
	})
}

func (s *Store) RemoveItem(ctx context.Context, productID string) cartsync.Result {
	return s.run(ctx, func(ctx context.Context) cartsync.Result {
		return s.sync.RemoveItem(ctx, productID)
	})
}

func (s *Store) ClearCart(ctx context.Context) cartsync.Result {
	return s.run(ctx, s.sync.ClearCart)
}

func (s *Store) ApplyVoucher(ctx context.Context, code string) cartsync.Result {
	return s.run(ctx, func(ctx context.Context) cartsync.Result {
		return s.sync.ApplyVoucher(ctx, code)
	})
}

func (s *Store) RemoveVoucher(ctx context.Context) cartsync.Result {
	return s.run(ctx, s.sync.RemoveVoucher)
}

// VoucherInfo asks the service which voucher is attached.
func (s *Store) VoucherInfo(ctx context.Context) (*cart.VoucherApplication, *pkgerrors.Error) {
	s.touch()
	voucher, err := s.sync.VoucherInfo(ctx)
	if err != nil && err.Code() == pkgerrors.CodeUnauthorized {
		s.unauthenticated(ctx)
	}
	return voucher, err
}

func (s *Store) run(ctx context.Context, op func(context.Context) cartsync.Result) cartsync.Result {
	s.mu.Lock()
	s.loading++
	s.lastUsed = s.now()
	s.mu.Unlock()

	res := op(ctx)

	s.mu.Lock()
	s.loading--
	s.lastUsed = s.now()
	switch {
	case res.Err != nil:
		s.err = res.Err
	case res.Success:
		s.err = nil
	}
	s.mu.Unlock()

	if res.Err != nil && res.Err.Code() == pkgerrors.CodeUnauthorized {
		s.unauthenticated(ctx)
	}
	return res
}

func (s *Store) unauthenticated(ctx context.Context) {
	if s.onUnauth != nil {
		s.onUnauth(context.WithoutCancel(ctx), s.id)
	}
}

func (s *Store) touch() {
	s.mu.Lock()
	s.lastUsed = s.now()
	s.mu.Unlock()
}

// idleSince reports when the store was last used, and false while an
// operation is in flight.
func (s *Store) idleSince() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed, s.loading == 0
}

// close stops the synchronizer and resets the aggregate to empty.
func (s *Store) close() {
	s.sync.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg = cart.Empty()
	s.notices = nil
	s.err = nil
	s.closed = true
}

// wait blocks until no operation is in flight or ctx ends.
func (s *Store) wait(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, idle := s.idleSince(); idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
