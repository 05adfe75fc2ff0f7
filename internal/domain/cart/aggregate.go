package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/example/ec-storefront/internal/domain/aggregate"
	"github.com/example/ec-storefront/internal/infrastructure/store"
)

const AggregateType = "Cart"

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product is required")
	ErrItemNotInCart   = errors.New("product is not in the cart")
)

type CartItem struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	AddedAt   time.Time `json:"added_at"`
}

func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

type Cart struct {
	ID      string              `json:"id"`
	UserID  string              `json:"user_id"`
	Items   map[string]CartItem `json:"items"` // productID -> item
	Version int                 `json:"version"`
}

func newCart(userID string) *Cart {
	return &Cart{ID: GetCartID(userID), UserID: userID, Items: make(map[string]CartItem)}
}

// GetCartID returns the cart ID for a user (one cart per user)
func GetCartID(userID string) string {
	return "cart-" + userID
}

func (c *Cart) GetID() string   { return c.ID }
func (c *Cart) GetVersion() int { return c.Version }

// ApplyEvent applies a single event to the cart state
func (c *Cart) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventItemAdded:
		var data ItemAddedToCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		// adding a product that is already there raises its quantity
		if existing, ok := c.Items[data.ProductID]; ok {
			existing.Quantity += data.Quantity
			existing.Price = data.Price
			c.Items[data.ProductID] = existing
		} else {
			c.Items[data.ProductID] = CartItem{
				ProductID: data.ProductID,
				Quantity:  data.Quantity,
				Price:     data.Price,
				AddedAt:   data.AddedAt,
			}
		}
	case EventItemRemoved:
		var data ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		delete(c.Items, data.ProductID)
	case EventQuantityUpdated:
		var data ItemQuantityUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if existing, ok := c.Items[data.ProductID]; ok {
			existing.Quantity = data.Quantity
			c.Items[data.ProductID] = existing
		}
	case EventCartCleared:
		c.Items = make(map[string]CartItem)
	}
	c.Version = event.Version
	return nil
}

// Lines returns the items oldest first.
func (c *Cart) Lines() []CartItem {
	lines := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, item)
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].AddedAt.Equal(lines[j].AddedAt) {
			return lines[i].AddedAt.Before(lines[j].AddedAt)
		}
		return lines[i].ProductID < lines[j].ProductID
	})
	return lines
}

func (c *Cart) Total() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get replays the user's cart. A user without events has an empty cart.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	cart, _, err := aggregate.LoadAggregate(ctx, s.eventStore, GetCartID(userID), func() *Cart { return newCart(userID) })
	return cart, err
}

func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int, price float64) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	cartID := GetCartID(userID)
	event := ItemAddedToCart{
		CartID:    cartID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
		AddedAt:   time.Now().UTC(),
	}
	_, err := s.eventStore.Append(ctx, cartID, AggregateType, EventItemAdded, event)
	return err
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if err := s.requireItem(ctx, userID, productID); err != nil {
		return err
	}

	cartID := GetCartID(userID)
	event := ItemRemovedFromCart{
		CartID:    cartID,
		UserID:    userID,
		ProductID: productID,
		RemovedAt: time.Now().UTC(),
	}
	_, err := s.eventStore.Append(ctx, cartID, AggregateType, EventItemRemoved, event)
	return err
}

// UpdateQuantity sets the quantity of a line already in the cart.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.requireItem(ctx, userID, productID); err != nil {
		return err
	}

	cartID := GetCartID(userID)
	event := ItemQuantityUpdated{
		CartID:    cartID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.eventStore.Append(ctx, cartID, AggregateType, EventQuantityUpdated, event)
	return err
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	cartID := GetCartID(userID)
	event := CartCleared{
		CartID:    cartID,
		UserID:    userID,
		ClearedAt: time.Now().UTC(),
	}
	_, err := s.eventStore.Append(ctx, cartID, AggregateType, EventCartCleared, event)
	return err
}

func (s *Service) requireItem(ctx context.Context, userID, productID string) error {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := cart.Items[productID]; !ok {
		return ErrItemNotInCart
	}
	return nil
}
