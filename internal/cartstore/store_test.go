package cartstore

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cartservice"
	"github.com/angelmondragon/storefront/internal/cartservice/cartservicetest"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newFake() *cartservicetest.Fake {
	fake := cartservicetest.New()
	ceiling := 4
	fake.AddProduct(cartservicetest.Product{ID: "fan", Name: "Fan", Price: decimal.RequireFromString("100"), Stock: &ceiling})
	fake.AddProduct(cartservicetest.Product{ID: "desk", Name: "Desk", Price: decimal.RequireFromString("250")})
	return fake
}

func newStore(t *testing.T, fake *cartservicetest.Fake, params Params) *Store {
	t.Helper()
	params.SessionID = "sess-1"
	params.Remote = fake.ForToken("token-1")
	params.Logger = quietLogger()
	store := New(params)
	t.Cleanup(store.close)
	return store
}

func TestStoreStartFetchesOnce(t *testing.T) {
	fake := newFake()
	fake.Seed("desk", 2)
	store := newStore(t, fake, Params{})

	first := store.Start(context.Background())
	second := store.Start(context.Background())

	require.True(t, first.Success)
	assert.Equal(t, first.Success, second.Success)
	assert.Equal(t, 1, fake.CallCount(cartservicetest.OpGetCart))
	assert.Equal(t, 2, store.ItemCount())
}

func TestStoreSnapshot(t *testing.T) {
	fake := newFake()
	fake.Seed("desk", 1)
	fake.Seed("fan", 2)
	store := newStore(t, fake, Params{})
	require.True(t, store.Start(context.Background()).Success)

	view := store.Snapshot()

	assert.Equal(t, 3, view.ItemCount)
	assert.False(t, view.Loading)
	assert.Nil(t, view.Err)
	assert.Equal(t, enums.SyncStateIdle, view.State)
	assert.True(t, view.Aggregate.Total.Equal(decimal.RequireFromString("450")))
}

func TestStoreErrorSlotTracksLastOperation(t *testing.T) {
	fake := newFake()
	fake.Seed("desk", 1)
	store := newStore(t, fake, Params{})
	require.True(t, store.Start(context.Background()).Success)

	fake.FailNext(cartservicetest.OpUpdateItem, cartservice.Unavailable(errors.New("reset"), "cart service unreachable"))
	res := store.UpdateQuantity(context.Background(), "desk", 3)
	require.False(t, res.Success)

	view := store.Snapshot()
	require.NotNil(t, view.Err)
	assert.Equal(t, pkgerrors.CodeRemoteUnavailable, view.Err.Code())
	assert.Equal(t, 1, view.ItemCount)

	require.True(t, store.UpdateQuantity(context.Background(), "desk", 3).Success)
	view = store.Snapshot()
	assert.Nil(t, view.Err)
	assert.Equal(t, 3, view.ItemCount)
}

func TestStoreLoadingWhileOperationInFlight(t *testing.T) {
	fake := newFake()
	fake.Seed("desk", 1)
	store := newStore(t, fake, Params{})
	require.True(t, store.Start(context.Background()).Success)

	gate := fake.Hold(cartservicetest.OpAddItem)
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.AddItem(context.Background(), "desk", 1)
	}()
	<-gate.Entered()

	view := store.Snapshot()
	assert.True(t, view.Loading)
	assert.Equal(t, enums.SyncStateMutating, view.State)

	gate.Release()
	<-done
	assert.False(t, store.Snapshot().Loading)
	assert.Equal(t, 2, store.ItemCount())
}

func TestStoreNoticesHandedOutOnce(t *testing.T) {
	fake := newFake()
	fake.Seed("fan", 3)
	store := newStore(t, fake, Params{})
	require.True(t, store.Start(context.Background()).Success)

	fake.SetPrice("fan", decimal.RequireFromString("120"))
	fake.SetStock("fan", 2)
	require.True(t, store.FetchCart(context.Background()).Success)

	view := store.Snapshot()
	assert.Equal(t, []string{
		"Price of Fan changed from ₱100.00 to ₱120.00",
		"Fan: Only 2 available",
	}, view.Notices)
	assert.Empty(t, store.Snapshot().Notices)
}

func TestStoreReportsUnauthenticated(t *testing.T) {
	fake := newFake()
	var ended []string
	store := newStore(t, fake, Params{
		OnUnauthenticated: func(_ context.Context, sessionID string) {
			ended = append(ended, sessionID)
		},
	})
	require.True(t, store.Start(context.Background()).Success)
	fake.ExpireSession()

	res := store.ClearCart(context.Background())

	require.False(t, res.Success)
	assert.Equal(t, pkgerrors.CodeUnauthorized, res.Err.Code())
	assert.Equal(t, []string{"sess-1"}, ended)
}

func TestStoreCloseResetsAggregate(t *testing.T) {
	fake := newFake()
	fake.Seed("desk", 2)
	store := newStore(t, fake, Params{})
	require.True(t, store.Start(context.Background()).Success)

	store.close()

	assert.True(t, store.Current().IsEmpty())
	assert.False(t, store.FetchCart(context.Background()).Success)
	assert.True(t, store.Current().IsEmpty())
}
