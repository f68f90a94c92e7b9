package cartstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cartservice/cartservicetest"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

func newRegistry(t *testing.T, fake *cartservicetest.Fake, clk *clock) *Registry {
	t.Helper()
	registry, err := NewRegistry(RegistryParams{
		Factory: fake,
		Logger:  quietLogger(),
		IdleTTL: 10 * time.Minute,
		Now:     clk.Now,
	})
	require.NoError(t, err)
	return registry
}

func TestNewRegistryRequiresFactory(t *testing.T) {
	_, err := NewRegistry(RegistryParams{Logger: quietLogger()})
	require.Error(t, err)
}

func TestRegistryAcquireCreatesOneStorePerSession(t *testing.T) {
	fake := newFake()
	fake.Seed("desk", 1)
	registry := newRegistry(t, fake, newClock())

	var wg sync.WaitGroup
	stores := make([]*Store, 5)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, err := registry.Acquire(context.Background(), Session{ID: "jti-1", AccountID: "acct-1", Token: "token-1"})
			assert.NoError(t, err)
			stores[i] = store
		}(i)
	}
	wg.Wait()

	for _, store := range stores {
		assert.Same(t, stores[0], store)
	}
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, 1, fake.CallCount(cartservicetest.OpGetCart))
	assert.Equal(t, []string{"token-1"}, fake.Tokens())
	assert.Equal(t, 1, stores[0].ItemCount())
}

func TestRegistryAcquireRequiresSessionID(t *testing.T) {
	registry := newRegistry(t, newFake(), newClock())
	_, err := registry.Acquire(context.Background(), Session{})
	require.Error(t, err)
}

func TestRegistryEndOnLogout(t *testing.T) {
	fake := newFake()
	fake.Seed("desk", 1)
	registry := newRegistry(t, fake, newClock())
	store, err := registry.Acquire(context.Background(), Session{ID: "jti-1", Token: "token-1"})
	require.NoError(t, err)

	assert.True(t, registry.End(context.Background(), "jti-1", ReasonLogout))
	assert.False(t, registry.End(context.Background(), "jti-1", ReasonLogout))
	assert.True(t, store.Current().IsEmpty())
	assert.Zero(t, registry.Len())

	again, err := registry.Acquire(context.Background(), Session{ID: "jti-1", Token: "token-1"})
	require.NoError(t, err)
	assert.NotSame(t, store, again)
	assert.Equal(t, 2, fake.CallCount(cartservicetest.OpGetCart))
}

func TestRegistryEndsUnauthenticatedSession(t *testing.T) {
	fake := newFake()
	registry := newRegistry(t, fake, newClock())
	store, err := registry.Acquire(context.Background(), Session{ID: "jti-1", Token: "token-1"})
	require.NoError(t, err)

	fake.ExpireSession()
	res := store.AddItem(context.Background(), "desk", 1)

	require.False(t, res.Success)
	_, ok := registry.Lookup("jti-1")
	assert.False(t, ok)
}

func TestRegistryAcquireRejectsExpiredToken(t *testing.T) {
	fake := newFake()
	fake.ExpireSession()
	registry := newRegistry(t, fake, newClock())

	store, err := registry.Acquire(context.Background(), Session{ID: "jti-1", Token: "stale"})

	require.Error(t, err)
	assert.Nil(t, store)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, registry.Len())
}

func TestRegistrySweepEvictsIdleSessions(t *testing.T) {
	fake := newFake()
	clk := newClock()
	registry := newRegistry(t, fake, clk)

	_, err := registry.Acquire(context.Background(), Session{ID: "idle", Token: "token-1"})
	require.NoError(t, err)
	clk.Advance(8 * time.Minute)
	active, err := registry.Acquire(context.Background(), Session{ID: "active", Token: "token-2"})
	require.NoError(t, err)
	clk.Advance(3 * time.Minute)
	active.FetchCart(context.Background())

	assert.Equal(t, 1, registry.Sweep(context.Background()))
	_, ok := registry.Lookup("idle")
	assert.False(t, ok)
	_, ok = registry.Lookup("active")
	assert.True(t, ok)
}

func TestRegistrySweepKeepsBusySessions(t *testing.T) {
	fake := newFake()
	clk := newClock()
	registry := newRegistry(t, fake, clk)
	store, err := registry.Acquire(context.Background(), Session{ID: "busy", Token: "token-1"})
	require.NoError(t, err)

	gate := fake.Hold(cartservicetest.OpAddItem)
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.AddItem(context.Background(), "desk", 1)
	}()
	<-gate.Entered()
	clk.Advance(time.Hour)

	assert.Zero(t, registry.Sweep(context.Background()))

	gate.Release()
	<-done
}

func TestRegistryRunStopsOnCancel(t *testing.T) {
	registry, err := NewRegistry(RegistryParams{
		Factory:       newFake(),
		Logger:        quietLogger(),
		SweepInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- registry.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRegistryShutdownEndsAllSessions(t *testing.T) {
	fake := newFake()
	registry := newRegistry(t, fake, newClock())
	for _, id := range []string{"a", "b"} {
		_, err := registry.Acquire(context.Background(), Session{ID: id, Token: "token-" + id})
		require.NoError(t, err)
	}

	require.NoError(t, registry.Shutdown(context.Background()))
	assert.Zero(t, registry.Len())
}

func TestRegistryShutdownReportsBusySessions(t *testing.T) {
	fake := newFake()
	registry := newRegistry(t, fake, newClock())
	store, err := registry.Acquire(context.Background(), Session{ID: "busy", Token: "token-1"})
	require.NoError(t, err)

	gate := fake.Hold(cartservicetest.OpAddItem)
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.AddItem(context.Background(), "desk", 1)
	}()
	<-gate.Entered()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = registry.Shutdown(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session busy")
	assert.Zero(t, registry.Len())

	gate.Release()
	<-done
}
