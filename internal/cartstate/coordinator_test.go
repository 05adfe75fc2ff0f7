package cartstate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/ec-storefront/internal/cartstate/mocks"
	"github.com/example/ec-storefront/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLoaded(t *testing.T, api *mocks.MockCartAPI, authenticated bool) *Coordinator {
	t.Helper()
	c := New(api, mocks.StaticAuth(authenticated), nil)
	require.NoError(t, c.Load(context.Background()))
	return c
}

// gate holds mutations for chosen products until released.
type gate struct {
	entered chan string
	release map[string]chan struct{}
}

func newGate(products ...string) *gate {
	g := &gate{entered: make(chan string, len(products)), release: make(map[string]chan struct{})}
	for _, p := range products {
		g.release[p] = make(chan struct{})
	}
	return g
}

func (g *gate) hold(productID string) {
	ch, ok := g.release[productID]
	if !ok {
		return
	}
	g.entered <- productID
	<-ch
}

// ============================================
// Load Tests
// ============================================

func TestCoordinator_LoadPopulatesCart(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 5, 2), mocks.Item("p2", 1, 3))
	c := New(api, mocks.StaticAuth(true), nil)

	assert.Nil(t, c.Cart())
	require.NoError(t, c.Load(context.Background()))

	assert.False(t, c.Loading())
	assert.Equal(t, 5, c.ItemCount())
	assert.Equal(t, 13.0, c.Total())
	assert.Equal(t, "user-1", c.Cart().UserID)
}

func TestCoordinator_LoadFailureLeavesCartNil(t *testing.T) {
	api := mocks.NewMockCartAPI()
	api.FetchErr = errors.New("network down")
	c := New(api, mocks.StaticAuth(true), nil)

	err := c.Load(context.Background())

	assert.Error(t, err)
	assert.Nil(t, c.Cart())
	assert.False(t, c.Loading())
	assert.Zero(t, c.ItemCount())
}

func TestCoordinator_LoadingOnlyDuringInitialFetch(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1))
	c := New(api, mocks.StaticAuth(true), nil)

	var seen []bool
	unsubscribe := c.Subscribe(func(s State) { seen = append(seen, s.Loading) })
	defer unsubscribe()

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.IncrementQuantity(context.Background(), "p1"))

	require.NotEmpty(t, seen)
	assert.True(t, seen[0])
	for _, loading := range seen[1:] {
		assert.False(t, loading)
	}
}

// ============================================
// Auth Gate Tests
// ============================================

func TestCoordinator_AddToCartUnauthenticated(t *testing.T) {
	api := mocks.NewMockCartAPI()
	c := New(api, mocks.StaticAuth(false), nil)

	ok, err := c.AddToCart(context.Background(), "p1")

	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Zero(t, api.MutationCount())
	assert.Zero(t, api.FetchCalls)
}

func TestCoordinator_AddToCartNilAuthenticator(t *testing.T) {
	api := mocks.NewMockCartAPI()
	c := New(api, nil, nil)

	ok, err := c.AddToCart(context.Background(), "p1")

	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Zero(t, api.MutationCount())
}

func TestCoordinator_AddToCartRefetches(t *testing.T) {
	api := mocks.NewMockCartAPI()
	c := newLoaded(t, api, true)

	ok, err := c.AddToCart(context.Background(), "p1")

	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, api.AddCalls, 1)
	assert.Equal(t, mocks.QuantityCall{ProductID: "p1", Quantity: 1}, api.AddCalls[0])
	assert.Equal(t, 2, api.FetchCalls)
	assert.Equal(t, 1, c.ItemCount())
	assert.False(t, c.IsMutating("p1"))
}

// ============================================
// Quantity Tests
// ============================================

func TestCoordinator_IncrementSendsQuantityPlusOne(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 2, 2))
	c := newLoaded(t, api, true)

	require.NoError(t, c.IncrementQuantity(context.Background(), "p1"))

	require.Len(t, api.UpdateCalls, 1)
	assert.Equal(t, mocks.QuantityCall{ProductID: "p1", Quantity: 3}, api.UpdateCalls[0])
	assert.Equal(t, 3, c.ItemCount())
	assert.Equal(t, 6.0, c.Total())
}

func TestCoordinator_DecrementAtOneStillSendsOne(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 2, 1))
	c := newLoaded(t, api, true)

	require.NoError(t, c.DecrementQuantity(context.Background(), "p1"))

	require.Len(t, api.UpdateCalls, 1)
	assert.Equal(t, mocks.QuantityCall{ProductID: "p1", Quantity: 1}, api.UpdateCalls[0])
}

func TestCoordinator_DecrementNeverBelowOne(t *testing.T) {
	for _, start := range []int{1, 2, 5} {
		api := mocks.NewMockCartAPI(mocks.Item("p1", 1, start))
		c := newLoaded(t, api, true)

		for i := 0; i < start+2; i++ {
			require.NoError(t, c.DecrementQuantity(context.Background(), "p1"))
		}

		for _, call := range api.UpdateCalls {
			assert.GreaterOrEqual(t, call.Quantity, 1)
		}
		assert.Equal(t, 1, c.ItemCount())
	}
}

func TestCoordinator_AdjustMissingProductIsNoop(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1))
	c := newLoaded(t, api, true)
	fetches := api.FetchCalls

	require.NoError(t, c.IncrementQuantity(context.Background(), "p9"))
	require.NoError(t, c.DecrementQuantity(context.Background(), "p9"))

	assert.Zero(t, api.MutationCount())
	assert.Equal(t, fetches, api.FetchCalls)
}

func TestCoordinator_AdjustBeforeLoadIsNoop(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1))
	c := New(api, mocks.StaticAuth(true), nil)

	require.NoError(t, c.IncrementQuantity(context.Background(), "p1"))

	assert.Zero(t, api.MutationCount())
}

// ============================================
// Remove Tests
// ============================================

func TestCoordinator_RemoveDoesNotCheckCache(t *testing.T) {
	api := mocks.NewMockCartAPI()
	c := newLoaded(t, api, true)

	require.NoError(t, c.RemoveFromCart(context.Background(), "p9"))

	assert.Equal(t, []string{"p9"}, api.RemoveCalls)
}

func TestCoordinator_RemoveRefetches(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 2), mocks.Item("p2", 1, 1))
	c := newLoaded(t, api, true)

	require.NoError(t, c.RemoveFromCart(context.Background(), "p1"))

	assert.Equal(t, 1, c.ItemCount())
	_, found := c.Cart().Find("p1")
	assert.False(t, found)
}

// ============================================
// Settle Tests
// ============================================

func TestCoordinator_FailedMutationStillSettles(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 2))
	c := newLoaded(t, api, true)
	api.UpdateErr = &client.APIError{StatusCode: 500, Message: "boom"}

	err := c.IncrementQuantity(context.Background(), "p1")

	assert.ErrorIs(t, err, client.ErrServer)
	assert.False(t, c.IsMutating("p1"))
	assert.Equal(t, 2, api.FetchCalls)
	assert.Equal(t, 2, c.ItemCount())
}

func TestCoordinator_RefetchFailureJoinsErrors(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 2))
	c := newLoaded(t, api, true)
	mutationErr := errors.New("mutation failed")
	refetchErr := errors.New("refetch failed")
	api.RemoveErr = mutationErr
	api.SetFetchErr(refetchErr)

	err := c.RemoveFromCart(context.Background(), "p1")

	assert.ErrorIs(t, err, mutationErr)
	assert.ErrorIs(t, err, refetchErr)
	assert.Equal(t, 2, c.ItemCount())
}

func TestCoordinator_SessionExpiredDiscardsCart(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 2))
	c := newLoaded(t, api, true)
	api.UpdateErr = client.ErrSessionExpired

	err := c.IncrementQuantity(context.Background(), "p1")

	assert.ErrorIs(t, err, client.ErrSessionExpired)
	assert.Nil(t, c.Cart())
	assert.Equal(t, 1, api.FetchCalls)
}

// ============================================
// Mutation Marker Tests
// ============================================

func TestCoordinator_IsMutatingDuringFlight(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1), mocks.Item("p2", 1, 1))
	c := newLoaded(t, api, true)
	g := newGate("p1")
	api.BeforeMutation = g.hold

	done := make(chan error, 1)
	go func() { done <- c.IncrementQuantity(context.Background(), "p1") }()

	<-g.entered
	assert.True(t, c.IsMutating("p1"))
	assert.False(t, c.IsMutating("p2"))
	assert.Equal(t, "p1", c.State().Mutating)

	close(g.release["p1"])
	require.NoError(t, <-done)
	assert.False(t, c.IsMutating("p1"))
}

func TestCoordinator_OnlyLatestMutationIsMarked(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1), mocks.Item("p2", 1, 1))
	c := newLoaded(t, api, true)
	g := newGate("p1", "p2")
	api.BeforeMutation = g.hold
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- c.IncrementQuantity(ctx, "p1") }()
	<-g.entered

	second := make(chan error, 1)
	go func() { second <- c.RemoveFromCart(ctx, "p2") }()
	<-g.entered

	assert.False(t, c.IsMutating("p1"))
	assert.True(t, c.IsMutating("p2"))

	// the older mutation settling must not clear the newer marker
	close(g.release["p1"])
	require.NoError(t, <-first)
	assert.True(t, c.IsMutating("p2"))
	assert.False(t, c.IsMutating("p1"))

	close(g.release["p2"])
	require.NoError(t, <-second)
	assert.False(t, c.IsMutating("p2"))
	assert.Equal(t, 2, c.ItemCount())
}

func TestCoordinator_IsMutatingEmptyID(t *testing.T) {
	c := New(mocks.NewMockCartAPI(), mocks.StaticAuth(true), nil)

	assert.False(t, c.IsMutating(""))
}

// ============================================
// Item Count Tests
// ============================================

func TestCoordinator_ItemCountMatchesCachedQuantities(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 2), mocks.Item("p2", 3, 4))
	c := newLoaded(t, api, true)
	ctx := context.Background()

	steps := []func() error{
		func() error { return c.IncrementQuantity(ctx, "p1") },
		func() error { _, err := c.AddToCart(ctx, "p3"); return err },
		func() error { return c.DecrementQuantity(ctx, "p2") },
		func() error { return c.RemoveFromCart(ctx, "p1") },
	}
	for _, step := range steps {
		require.NoError(t, step())

		sum := 0
		for _, item := range c.Cart().Items {
			sum += item.Quantity
		}
		assert.Equal(t, sum, c.ItemCount())
		assert.Equal(t, sum, c.State().ItemCount)
	}
	assert.Equal(t, 4, c.ItemCount())
}

// ============================================
// Subscription and Reset Tests
// ============================================

func TestCoordinator_SubscribeAndUnsubscribe(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1))
	c := newLoaded(t, api, true)

	var mu sync.Mutex
	var states []State
	unsubscribe := c.Subscribe(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, c.IncrementQuantity(context.Background(), "p1"))

	mu.Lock()
	require.NotEmpty(t, states)
	assert.True(t, states[0].IsMutating("p1"))
	last := states[len(states)-1]
	mu.Unlock()
	assert.False(t, last.IsMutating("p1"))
	assert.Equal(t, 2, last.ItemCount)

	unsubscribe()
	unsubscribe()
	mu.Lock()
	n := len(states)
	mu.Unlock()
	require.NoError(t, c.IncrementQuantity(context.Background(), "p1"))
	mu.Lock()
	assert.Equal(t, n, len(states))
	mu.Unlock()
}

func TestCoordinator_SnapshotIsACopy(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1))
	c := newLoaded(t, api, true)

	snapshot := c.Cart()
	snapshot.Items[0].Quantity = 50

	assert.Equal(t, 1, c.ItemCount())
}

func TestCoordinator_ResetDiscardsCart(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1))
	c := newLoaded(t, api, true)

	c.Reset()

	assert.Nil(t, c.Cart())
	assert.Zero(t, c.ItemCount())
	assert.Zero(t, c.Total())
}

func TestCoordinator_RefetchAfterResetIsDropped(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1))
	c := newLoaded(t, api, true)
	g := newGate("p1")
	api.BeforeMutation = g.hold

	done := make(chan error, 1)
	go func() { done <- c.IncrementQuantity(context.Background(), "p1") }()
	<-g.entered

	c.Reset()
	assert.False(t, c.IsMutating("p1"))

	close(g.release["p1"])
	require.NoError(t, <-done)
	assert.Nil(t, c.Cart())
}

func TestCoordinator_ConcurrentMutations(t *testing.T) {
	api := mocks.NewMockCartAPI(mocks.Item("p1", 1, 1), mocks.Item("p2", 1, 1))
	c := newLoaded(t, api, true)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.IncrementQuantity(ctx, "p1")
		}()
		go func() {
			defer wg.Done()
			_ = c.ItemCount()
			_ = c.IsMutating("p2")
		}()
	}
	wg.Wait()

	assert.False(t, c.IsMutating("p1"))
	require.NoError(t, c.Load(ctx))
	item, ok := c.Cart().Find("p1")
	require.True(t, ok)
	assert.GreaterOrEqual(t, item.Quantity, 2)
}
