package category

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/domain/aggregate"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "Category"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidName      = errors.New("name is required")
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Category represents a product category
type Category struct {
	ID        string
	Name      string
	Slug      string
	Deleted   bool
	CreatedAt time.Time
	Version   int
}

func (c *Category) GetID() string   { return c.ID }
func (c *Category) GetVersion() int { return c.Version }

func (c *Category) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventCategoryCreated:
		var e CategoryCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		c.ID = e.CategoryID
		c.Name = e.Name
		c.Slug = e.Slug
		c.CreatedAt = e.CreatedAt
	case EventCategoryDeleted:
		c.Deleted = true
	}
	c.Version = event.Version
	return nil
}

// Service handles category domain operations
type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) Create(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	event := CategoryCreated{
		CategoryID: uuid.New().String(),
		Name:       name,
		Slug:       generateSlug(name),
		CreatedAt:  time.Now().UTC(),
	}

	stored, err := s.eventStore.Append(ctx, event.CategoryID, AggregateType, EventCategoryCreated, event)
	if err != nil {
		return nil, err
	}

	category := &Category{}
	if err := category.ApplyEvent(*stored); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category. Deleting twice reports ErrCategoryNotFound.
func (s *Service) Delete(ctx context.Context, categoryID string) error {
	category, found, err := aggregate.LoadAggregate(ctx, s.eventStore, categoryID, func() *Category { return &Category{} })
	if err != nil {
		return err
	}
	if !found || category.Deleted {
		return ErrCategoryNotFound
	}

	event := CategoryDeleted{
		CategoryID: categoryID,
		DeletedAt:  time.Now().UTC(),
	}
	_, err = s.eventStore.Append(ctx, categoryID, AggregateType, EventCategoryDeleted, event)
	return err
}

// generateSlug creates a URL-friendly slug from a name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.NewReplacer(" ", "-", "_", "-").Replace(slug)
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
