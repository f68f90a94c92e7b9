package cartstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/internal/cartevents"
	"github.com/angelmondragon/storefront/internal/cartservice"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	defaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// End reasons recorded in logs and metrics.
const (
	ReasonLogout          = "logout"
	ReasonUnauthenticated = "unauthenticated"
	ReasonIdle            = "idle"
	ReasonShutdown        = "shutdown"
)

// Session identifies the authenticated session a cart belongs to.
type Session struct {
	ID        string
	AccountID string
	Token     string
}

// RegistryParams configure the session registry.
type RegistryParams struct {
	Factory       cartservice.Factory
	Policy        enums.VoucherPolicy
	Events        cartevents.Publisher
	Metrics       *metrics.CartMetrics
	Logger        *logger.Logger
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// Registry holds one Store per live session.
type Registry struct {
	factory  cartservice.Factory
	policy   enums.VoucherPolicy
	events   cartevents.Publisher
	metrics  *metrics.CartMetrics
	logg     *logger.Logger
	idleTTL  time.Duration
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry builds a registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Factory == nil {
		return nil, fmt.Errorf("cart service factory required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	idleTTL := params.IdleTTL
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	interval := params.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		factory:  params.Factory,
		policy:   params.Policy,
		events:   params.Events,
		metrics:  params.Metrics,
		logg:     params.Logger,
		idleTTL:  idleTTL,
		interval: interval,
		now:      now,
		stores:   map[string]*Store{},
	}, nil
}

// Acquire returns the session's store, creating and starting it on first
// use. Concurrent first requests share the one initial fetch. A session the
// cart service no longer accepts is ended and its error returned.
func (r *Registry) Acquire(ctx context.Context, session Session) (*Store, error) {
	if session.ID == "" {
		return nil, fmt.Errorf("session id required")
	}

	r.mu.Lock()
	store, ok := r.stores[session.ID]
	if !ok {
		store = New(Params{
			SessionID:         session.ID,
			AccountID:         session.AccountID,
			Remote:            r.factory.ForToken(session.Token),
			Policy:            r.policy,
			Events:            r.events,
			Metrics:           r.metrics,
			Logger:            r.logg,
			Now:               r.now,
			OnUnauthenticated: r.unauthenticated,
		})
		r.stores[session.ID] = store
	}
	r.mu.Unlock()

	if !ok {
		r.metrics.SessionStarted()
		r.logg.Info(r.sessionCtx(ctx, store), "cart.session.started")
	}
	if res := store.Start(ctx); res.Err != nil && res.Err.Code() == pkgerrors.CodeUnauthorized {
		return nil, res.Err
	}
	return store, nil
}

// Lookup returns the store for a session without creating one.
func (r *Registry) Lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[sessionID]
	return store, ok
}

// End tears down a session's store. It reports whether a store existed.
func (r *Registry) End(ctx context.Context, sessionID, reason string) bool {
	r.mu.Lock()
	store, ok := r.stores[sessionID]
	if ok {
		delete(r.stores, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	store.close()
	r.metrics.SessionEnded(reason)
	r.logg.Info(r.logg.WithField(r.sessionCtx(ctx, store), "reason", reason), "cart.session.ended")
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep ends every session idle for longer than the idle TTL and returns
// how many were ended. Sessions with an operation in flight are kept.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var expired []string
	for id, store := range r.stores {
		lastUsed, idle := store.idleSince()
		if idle && lastUsed.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	ended := 0
	for _, id := range expired {
		if r.End(ctx, id, ReasonIdle) {
			ended++
		}
	}
	return ended
}

// Run sweeps idle sessions on a fixed cadence until ctx is canceled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "cart session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				r.logg.Info(r.logg.WithField(ctx, "evicted", n), "cart.session.swept")
			}
		}
	}
}

// Shutdown waits for in-flight operations to settle, then ends every
// session. Sessions still busy when ctx ends are reported and ended anyway.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)

	var errs error
	for _, id := range ids {
		if store, ok := r.Lookup(id); ok {
			if err := store.wait(ctx); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("session %s: %w", id, err))
			}
		}
		r.End(ctx, id, ReasonShutdown)
	}
	return errs
}

func (r *Registry) unauthenticated(ctx context.Context, sessionID string) {
	r.End(ctx, sessionID, ReasonUnauthenticated)
}

func (r *Registry) sessionCtx(ctx context.Context, store *Store) context.Context {
	ctx = r.logg.WithSessionID(ctx, store.ID())
	if store.AccountID() != "" {
		ctx = r.logg.WithAccountID(ctx, store.AccountID())
	}
	return ctx
}
