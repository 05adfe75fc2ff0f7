package query

import (
	"context"
	"errors"
	"testing"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/infrastructure/store/mocks"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueryHandler() (*Handler, *store.ReadStore, *cart.Service) {
	readStore := store.NewReadStore()
	carts := cart.NewService(mocks.NewMockEventStore())
	return NewHandler(readStore, carts), readStore, carts
}

type failingCarts struct{}

func (failingCarts) Get(context.Context, string) (*cart.Cart, error) {
	return nil, errors.New("replay failed")
}

// ============================================
// Product Query Tests
// ============================================

func TestHandler_GetProduct(t *testing.T) {
	handler, readStore, _ := newTestQueryHandler()
	readStore.Set(store.CollectionProducts, "prod-1", &readmodel.ProductReadModel{ID: "prod-1", Name: "Mug", Price: 3})

	product, found := handler.GetProduct("prod-1")
	assert.True(t, found)
	assert.Equal(t, "Mug", product.Name)

	_, found = handler.GetProduct("missing")
	assert.False(t, found)
}

func TestHandler_ListProducts_FilterByCategory(t *testing.T) {
	handler, readStore, _ := newTestQueryHandler()
	readStore.Set(store.CollectionProducts, "p1", &readmodel.ProductReadModel{ID: "p1", CategoryID: "c1"})
	readStore.Set(store.CollectionProducts, "p2", &readmodel.ProductReadModel{ID: "p2", CategoryID: "c2"})
	readStore.Set(store.CollectionProducts, "p3", &readmodel.ProductReadModel{ID: "p3", CategoryID: "c1"})

	assert.Len(t, handler.ListProducts(""), 3)

	filtered := handler.ListProducts("c1")
	require.Len(t, filtered, 2)
	assert.Equal(t, "p1", filtered[0].ID)
	assert.Equal(t, "p3", filtered[1].ID)

	assert.Empty(t, handler.ListProducts("none"))
}

// ============================================
// Category and User Query Tests
// ============================================

func TestHandler_Categories(t *testing.T) {
	handler, readStore, _ := newTestQueryHandler()
	readStore.Set(store.CollectionCategories, "c1", &readmodel.CategoryReadModel{ID: "c1", Name: "Kitchen"})

	categories := handler.ListCategories()
	require.Len(t, categories, 1)
	assert.Equal(t, "Kitchen", categories[0].Name)

	c, ok := handler.GetCategory("c1")
	assert.True(t, ok)
	assert.Equal(t, "c1", c.ID)
}

func TestHandler_GetUserByEmail(t *testing.T) {
	handler, readStore, _ := newTestQueryHandler()
	readStore.Set(store.CollectionUsers, "u1", &readmodel.UserReadModel{ID: "u1", Email: "a@example.com"})
	readStore.Set(store.CollectionUsers, "u2", &readmodel.UserReadModel{ID: "u2", Email: "b@example.com"})

	u, ok := handler.GetUserByEmail("b@example.com")
	require.True(t, ok)
	assert.Equal(t, "u2", u.ID)

	_, ok = handler.GetUserByEmail("c@example.com")
	assert.False(t, ok)

	u, ok = handler.GetUser("u1")
	require.True(t, ok)
	assert.Equal(t, "a@example.com", u.Email)
}

// ============================================
// Cart Query Tests
// ============================================

func TestHandler_GetCart_EmbedsProducts(t *testing.T) {
	handler, readStore, carts := newTestQueryHandler()
	ctx := context.Background()
	readStore.Set(store.CollectionProducts, "p1", &readmodel.ProductReadModel{ID: "p1", Name: "Mug", Price: 2.5, ImageURL: "mug.png"})
	require.NoError(t, carts.AddItem(ctx, "u1", "p1", 2, 2.5))
	require.NoError(t, carts.AddItem(ctx, "u1", "gone", 1, 4))

	view, err := handler.GetCart(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, "u1", view.UserID)
	require.Len(t, view.Items, 2)
	byID := map[string]CartLineView{}
	for _, line := range view.Items {
		byID[line.Product.ID] = line
	}
	assert.Equal(t, "Mug", byID["p1"].Product.Name)
	assert.Equal(t, 5.0, byID["p1"].Subtotal)
	assert.Equal(t, 4.0, byID["gone"].Product.Price)
	assert.Equal(t, 9.0, view.Total)
}

func TestHandler_GetCart_Empty(t *testing.T) {
	handler, _, _ := newTestQueryHandler()

	view, err := handler.GetCart(context.Background(), "nobody")

	require.NoError(t, err)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Total)
}

func TestHandler_GetCart_LoadError(t *testing.T) {
	handler := NewHandler(store.NewReadStore(), failingCarts{})

	_, err := handler.GetCart(context.Background(), "u1")

	assert.Error(t, err)
}
