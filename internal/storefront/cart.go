package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/example/ec-storefront/internal/client"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type addItemRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartService talks to the cart endpoints of the signed-in user.
type CartService struct {
	client *client.Client
}

func NewCartService(c *client.Client) *CartService {
	return &CartService{client: c}
}

func (s *CartService) Fetch(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := s.client.Get(ctx, "/cart", nil, &cart); err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	return &cart, nil
}

// Add puts quantity units of productID in the cart. What happens when the
// product is already there is up to the server.
func (s *CartService) Add(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return ErrEmptyID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if err := s.client.Post(ctx, "/cart/add", addItemRequest{Product: productID, Quantity: quantity}, nil); err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

func (s *CartService) Remove(ctx context.Context, productID string) error {
	if productID == "" {
		return ErrEmptyID
	}
	if err := s.client.Delete(ctx, "/cart/remove/"+url.PathEscape(productID), nil); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

// Update sets the quantity of an existing line.
func (s *CartService) Update(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return ErrEmptyID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	path := "/cart/update/" + url.PathEscape(productID)
	if err := s.client.Patch(ctx, path, updateQuantityRequest{Quantity: quantity}, nil); err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return nil
}
