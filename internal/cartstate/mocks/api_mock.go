package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/storefront"
)

// MockCartAPI is an in-memory cart server for coordinator tests. It records
// every call and applies mutations to its own cart so refetches observe them.
type MockCartAPI struct {
	mu   sync.Mutex
	cart storefront.Cart

	FetchCalls  int
	AddCalls    []QuantityCall
	RemoveCalls []string
	UpdateCalls []QuantityCall

	FetchErr  error
	AddErr    error
	RemoveErr error
	UpdateErr error

	// BeforeMutation, when set, runs inside each mutating call before it is
	// applied. Tests use it to hold a request in flight.
	BeforeMutation func(productID string)
}

// QuantityCall records parameters passed to Add or Update
type QuantityCall struct {
	ProductID string
	Quantity  int
}

// NewMockCartAPI creates a MockCartAPI serving items.
func NewMockCartAPI(items ...storefront.CartItem) *MockCartAPI {
	m := &MockCartAPI{cart: storefront.Cart{UserID: "user-1"}}
	m.cart.Items = append(m.cart.Items, items...)
	m.recalc()
	return m
}

// Item builds a cart line for tests.
func Item(productID string, price float64, quantity int) storefront.CartItem {
	return storefront.CartItem{
		Product:  storefront.Product{UUID: productID, Name: productID, Price: price},
		Quantity: quantity,
		Subtotal: price * float64(quantity),
	}
}

func (m *MockCartAPI) Fetch(ctx context.Context) (*storefront.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.cart.Clone(), nil
}

func (m *MockCartAPI) Add(ctx context.Context, productID string, quantity int) error {
	m.hold(productID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddCalls = append(m.AddCalls, QuantityCall{ProductID: productID, Quantity: quantity})
	if m.AddErr != nil {
		return m.AddErr
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].ProductID() == productID {
			m.cart.Items[i].Quantity += quantity
			m.recalc()
			return nil
		}
	}
	m.cart.Items = append(m.cart.Items, Item(productID, 1, quantity))
	m.recalc()
	return nil
}

func (m *MockCartAPI) Remove(ctx context.Context, productID string) error {
	m.hold(productID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveCalls = append(m.RemoveCalls, productID)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	items := m.cart.Items[:0]
	for _, item := range m.cart.Items {
		if item.ProductID() != productID {
			items = append(items, item)
		}
	}
	m.cart.Items = items
	m.recalc()
	return nil
}

func (m *MockCartAPI) Update(ctx context.Context, productID string, quantity int) error {
	m.hold(productID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, QuantityCall{ProductID: productID, Quantity: quantity})
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].ProductID() == productID {
			m.cart.Items[i].Quantity = quantity
		}
	}
	m.recalc()
	return nil
}

// MutationCount returns how many mutating calls were made.
func (m *MockCartAPI) MutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AddCalls) + len(m.RemoveCalls) + len(m.UpdateCalls)
}

// SetFetchErr changes the Fetch error under the lock.
func (m *MockCartAPI) SetFetchErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchErr = err
}

func (m *MockCartAPI) hold(productID string) {
	if m.BeforeMutation != nil {
		m.BeforeMutation(productID)
	}
}

func (m *MockCartAPI) recalc() {
	total := 0.0
	for i := range m.cart.Items {
		item := &m.cart.Items[i]
		item.Subtotal = item.Product.Price * float64(item.Quantity)
		total += item.Subtotal
	}
	m.cart.Total = total
}

// StaticAuth is a fixed Authenticator.
type StaticAuth bool

func (a StaticAuth) Authenticated() bool { return bool(a) }
