package cartstate

import (
	"context"
	"errors"
	"sync"

	"github.com/example/ec-storefront/internal/client"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/storefront"
	"go.uber.org/zap"
)

// API is the cart endpoint surface the coordinator drives.
// *storefront.CartService satisfies it.
type API interface {
	Fetch(ctx context.Context) (*storefront.Cart, error)
	Add(ctx context.Context, productID string, quantity int) error
	Remove(ctx context.Context, productID string) error
	Update(ctx context.Context, productID string, quantity int) error
}

// Authenticator reports whether a session token is present.
type Authenticator interface {
	Authenticated() bool
}

// State is a snapshot handed to subscribers.
type State struct {
	Cart      *storefront.Cart
	Loading   bool
	Mutating  string
	ItemCount int
}

// IsMutating reports whether productID is the in-flight mutation target.
func (s State) IsMutating(productID string) bool {
	return productID != "" && s.Mutating == productID
}

// Coordinator owns the cached cart. Every mutation goes to the server and is
// followed by a refetch; the cache is never patched locally.
type Coordinator struct {
	api    API
	auth   Authenticator
	logger *zap.Logger

	mu       sync.RWMutex
	cart     *storefront.Cart
	loading  bool
	mutating string
	// seq identifies the latest mutation; only its settle clears mutating.
	seq uint64
	// epoch changes on Reset so refetches started before it are dropped.
	epoch uint64

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

func New(api API, auth Authenticator, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		api:    api,
		auth:   auth,
		logger: logging.Component(logger, "cartstate"),
		subs:   make(map[int]func(State)),
	}
}

// Load performs the initial fetch. On failure the cached cart is left as it
// was, which is nil before the first successful load.
func (c *Coordinator) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	cart, err := c.api.Fetch(ctx)

	c.mu.Lock()
	c.loading = false
	if err == nil && epoch == c.epoch {
		c.cart = cart
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.Debug("initial cart load failed", zap.Error(err))
		return err
	}
	return nil
}

// AddToCart adds one unit of productID. Without a session it returns false
// and makes no request, so the caller can send the user to sign in.
func (c *Coordinator) AddToCart(ctx context.Context, productID string) (bool, error) {
	if c.auth == nil || !c.auth.Authenticated() {
		return false, nil
	}
	err := c.mutate(ctx, productID, func(ctx context.Context) error {
		return c.api.Add(ctx, productID, 1)
	})
	return true, err
}

// RemoveFromCart deletes the line for productID. The cache is not consulted.
func (c *Coordinator) RemoveFromCart(ctx context.Context, productID string) error {
	return c.mutate(ctx, productID, func(ctx context.Context) error {
		return c.api.Remove(ctx, productID)
	})
}

// IncrementQuantity raises the cached quantity by one. Products missing from
// the cache are ignored.
func (c *Coordinator) IncrementQuantity(ctx context.Context, productID string) error {
	return c.adjust(ctx, productID, func(q int) int { return q + 1 })
}

// DecrementQuantity lowers the cached quantity by one, never below 1. At 1 the
// update is still sent.
func (c *Coordinator) DecrementQuantity(ctx context.Context, productID string) error {
	return c.adjust(ctx, productID, func(q int) int { return max(1, q-1) })
}

func (c *Coordinator) adjust(ctx context.Context, productID string, next func(int) int) error {
	c.mu.RLock()
	item, ok := c.cart.Find(productID)
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	quantity := next(item.Quantity)
	return c.mutate(ctx, productID, func(ctx context.Context) error {
		return c.api.Update(ctx, productID, quantity)
	})
}

// mutate marks productID, runs op and settles: the marker is cleared if no
// newer mutation replaced it, then the cart is refetched.
func (c *Coordinator) mutate(ctx context.Context, productID string, op func(context.Context) error) error {
	c.mu.Lock()
	c.seq++
	seq, epoch := c.seq, c.epoch
	c.mutating = productID
	c.mu.Unlock()
	c.notify()

	opErr := op(ctx)

	c.mu.Lock()
	if c.seq == seq {
		c.mutating = ""
	}
	c.mu.Unlock()

	if errors.Is(opErr, client.ErrSessionExpired) {
		// the session is gone, a refetch would only bounce off the server
		c.Reset()
		return opErr
	}
	c.notify()

	if opErr != nil {
		c.logger.Debug("cart mutation failed", zap.String("product", productID), zap.Error(opErr))
	}
	return errors.Join(opErr, c.refetch(ctx, epoch))
}

// refetch replaces the cache with the server's cart unless Reset ran since
// epoch was taken.
func (c *Coordinator) refetch(ctx context.Context, epoch uint64) error {
	cart, err := c.api.Fetch(ctx)
	if err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			c.Reset()
		}
		return err
	}

	c.mu.Lock()
	stale := epoch != c.epoch
	if !stale {
		c.cart = cart
	}
	c.mu.Unlock()
	if !stale {
		c.notify()
	}
	return nil
}

// Reset discards the cached cart, e.g. on logout.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.cart = nil
	c.loading = false
	c.mutating = ""
	c.seq++
	c.epoch++
	c.mu.Unlock()
	c.notify()
}

// IsMutating reports whether productID is the target of the most recent
// mutation that has not settled yet.
func (c *Coordinator) IsMutating(productID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return productID != "" && c.mutating == productID
}

// ItemCount is the sum of quantities in the cached cart.
func (c *Coordinator) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.ItemCount()
}

// Cart returns a copy of the cached cart, or nil before the first load.
func (c *Coordinator) Cart() *storefront.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Clone()
}

func (c *Coordinator) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cart == nil {
		return 0
	}
	return c.cart.Total
}

func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Cart:      c.cart.Clone(),
		Loading:   c.loading,
		Mutating:  c.mutating,
		ItemCount: c.cart.ItemCount(),
	}
}

// Subscribe registers fn to receive a State after every change. Calls happen
// on the goroutine that made the change. The returned func unsubscribes.
func (c *Coordinator) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Coordinator) notify() {
	c.subMu.Lock()
	if len(c.subs) == 0 {
		c.subMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	state := c.State()
	for _, fn := range fns {
		fn(state)
	}
}
