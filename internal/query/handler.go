package query

import (
	"context"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/readmodel"
)

// CartLoader replays a user's cart. *cart.Service satisfies it.
type CartLoader interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
}

// CartLineView is one cart line with its product embedded
type CartLineView struct {
	Product  readmodel.ProductReadModel `json:"product"`
	Quantity int                        `json:"quantity"`
	Subtotal float64                    `json:"subtotal"`
}

// CartView is the GET /cart payload
type CartView struct {
	UserID string         `json:"userId"`
	Items  []CartLineView `json:"items"`
	Total  float64        `json:"total"`
}

type Handler struct {
	readStore store.ReadStoreInterface
	carts     CartLoader
}

func NewHandler(readStore store.ReadStoreInterface, carts CartLoader) *Handler {
	return &Handler{readStore: readStore, carts: carts}
}

// Products

func (h *Handler) GetProduct(id string) (*readmodel.ProductReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionProducts, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.ProductReadModel), true
}

// ListProducts returns the catalog, optionally limited to one category.
func (h *Handler) ListProducts(categoryID string) []*readmodel.ProductReadModel {
	items := h.readStore.GetAll(store.CollectionProducts)
	products := make([]*readmodel.ProductReadModel, 0, len(items))
	for _, item := range items {
		prod := item.(*readmodel.ProductReadModel)
		if categoryID != "" && prod.CategoryID != categoryID {
			continue
		}
		products = append(products, prod)
	}
	return products
}

// Categories

func (h *Handler) GetCategory(id string) (*readmodel.CategoryReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionCategories, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.CategoryReadModel), true
}

func (h *Handler) ListCategories() []*readmodel.CategoryReadModel {
	items := h.readStore.GetAll(store.CollectionCategories)
	categories := make([]*readmodel.CategoryReadModel, 0, len(items))
	for _, item := range items {
		categories = append(categories, item.(*readmodel.CategoryReadModel))
	}
	return categories
}

// Users

func (h *Handler) GetUser(id string) (*readmodel.UserReadModel, bool) {
	data, ok := h.readStore.Get(store.CollectionUsers, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.UserReadModel), true
}

func (h *Handler) GetUserByEmail(email string) (*readmodel.UserReadModel, bool) {
	data, ok := h.readStore.Find(store.CollectionUsers, func(item any) bool {
		return item.(*readmodel.UserReadModel).Email == email
	})
	if !ok {
		return nil, false
	}
	return data.(*readmodel.UserReadModel), true
}

// Cart

// GetCart assembles the user's cart with current product details. Lines
// whose product left the catalog keep their id and price.
func (h *Handler) GetCart(ctx context.Context, userID string) (*CartView, error) {
	c, err := h.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &CartView{UserID: userID, Items: []CartLineView{}}
	for _, line := range c.Lines() {
		product := readmodel.ProductReadModel{ID: line.ProductID, Price: line.Price}
		if p, ok := h.GetProduct(line.ProductID); ok {
			product = *p
		}
		view.Items = append(view.Items, CartLineView{
			Product:  product,
			Quantity: line.Quantity,
			Subtotal: line.Subtotal(),
		})
	}
	view.Total = c.Total()
	return view, nil
}
