package command

import (
	"context"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/category"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/readmodel"
)

// Handler is the write side: it validates commands against the read models
// and turns them into domain events. Projection is synchronous, so reads
// issued after a command returns see its effect.
type Handler struct {
	productSvc  *product.Service
	categorySvc *category.Service
	cartSvc     *cart.Service
	readStore   store.ReadStoreInterface
}

func NewHandler(
	productSvc *product.Service,
	categorySvc *category.Service,
	cartSvc *cart.Service,
	readStore store.ReadStoreInterface,
) *Handler {
	return &Handler{
		productSvc:  productSvc,
		categorySvc: categorySvc,
		cartSvc:     cartSvc,
		readStore:   readStore,
	}
}

// CreateProduct creates a new product. A category, when given, must exist.
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	if cmd.CategoryID != "" {
		if _, ok := h.readStore.Get(store.CollectionCategories, cmd.CategoryID); !ok {
			return nil, category.ErrCategoryNotFound
		}
	}
	return h.productSvc.Create(ctx, product.NewProduct{
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		ImageURL:    cmd.ImageURL,
		CategoryID:  cmd.CategoryID,
	})
}

// RenameProduct changes a product's name
func (h *Handler) RenameProduct(ctx context.Context, cmd RenameProduct) (*product.Product, error) {
	return h.productSvc.Rename(ctx, cmd.ProductID, cmd.Name)
}

func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) (*category.Category, error) {
	return h.categorySvc.Create(ctx, cmd.Name)
}

func (h *Handler) DeleteCategory(ctx context.Context, cmd DeleteCategory) error {
	return h.categorySvc.Delete(ctx, cmd.CategoryID)
}

// AddToCart adds an item to cart at the product's current price
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	if cmd.ProductID == "" {
		return cart.ErrInvalidProduct
	}

	// Get product price from read store
	p, ok := h.readStore.Get(store.CollectionProducts, cmd.ProductID)
	if !ok {
		return product.ErrProductNotFound
	}
	prod := p.(*readmodel.ProductReadModel)

	return h.cartSvc.AddItem(ctx, cmd.UserID, cmd.ProductID, cmd.Quantity, prod.Price)
}

// RemoveFromCart removes an item from cart
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	return h.cartSvc.RemoveItem(ctx, cmd.UserID, cmd.ProductID)
}

// UpdateCartItem sets the quantity of a line already in the cart
func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) error {
	return h.cartSvc.UpdateQuantity(ctx, cmd.UserID, cmd.ProductID, cmd.Quantity)
}

// ClearCart empties the cart
func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) error {
	return h.cartSvc.Clear(ctx, cmd.UserID)
}
