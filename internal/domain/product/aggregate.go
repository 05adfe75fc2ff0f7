package product

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/domain/aggregate"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "Product"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidName     = errors.New("name is required")
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"image_url"`
	CategoryID  string    `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

func (p *Product) GetID() string   { return p.ID }
func (p *Product) GetVersion() int { return p.Version }

func (p *Product) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventProductCreated:
		var e ProductCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.ID = e.ProductID
		p.Name = e.Name
		p.Description = e.Description
		p.Price = e.Price
		p.ImageURL = e.ImageURL
		p.CategoryID = e.CategoryID
		p.CreatedAt = e.CreatedAt
		p.UpdatedAt = e.CreatedAt
	case EventProductRenamed:
		var e ProductRenamed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.Name = e.Name
		p.UpdatedAt = e.RenamedAt
	}
	p.Version = event.Version
	return nil
}

// NewProduct holds the fields needed to list a product.
type NewProduct struct {
	Name        string
	Description string
	Price       float64
	ImageURL    string
	CategoryID  string
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) Create(ctx context.Context, p NewProduct) (*Product, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if p.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	event := ProductCreated{
		ProductID:   uuid.New().String(),
		Name:        name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		CategoryID:  p.CategoryID,
		CreatedAt:   time.Now().UTC(),
	}

	stored, err := s.eventStore.Append(ctx, event.ProductID, AggregateType, EventProductCreated, event)
	if err != nil {
		return nil, err
	}

	product := &Product{}
	if err := product.ApplyEvent(*stored); err != nil {
		return nil, err
	}
	return product, nil
}

// Rename changes a product's display name.
func (s *Service) Rename(ctx context.Context, productID, name string) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	product, found, err := aggregate.LoadAggregate(ctx, s.eventStore, productID, func() *Product { return &Product{} })
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProductNotFound
	}

	event := ProductRenamed{
		ProductID: productID,
		Name:      name,
		RenamedAt: time.Now().UTC(),
	}
	stored, err := s.eventStore.Append(ctx, productID, AggregateType, EventProductRenamed, event)
	if err != nil {
		return nil, err
	}
	if err := product.ApplyEvent(*stored); err != nil {
		return nil, err
	}
	return product, nil
}
