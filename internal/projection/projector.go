package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ec-storefront/internal/domain/category"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/readmodel"
	"go.uber.org/zap"
)

// Projector keeps the catalog and user read models in step with the event
// stream. Carts are replayed from their events on read and are not projected.
type Projector struct {
	readStore store.ReadStoreInterface
	logger    *zap.Logger
}

func NewProjector(readStore store.ReadStoreInterface, logger *zap.Logger) *Projector {
	return &Projector{readStore: readStore, logger: logging.Component(logger, "projector")}
}

// HandleEvent decodes a broker message and applies it.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	return p.Apply(ctx, event)
}

// Apply projects one event. It satisfies store.EventHandler.
func (p *Projector) Apply(_ context.Context, event store.Event) error {
	p.logger.Debug("projecting event",
		zap.String("event_type", event.EventType),
		zap.String("aggregate_type", event.AggregateType))

	switch event.AggregateType {
	case product.AggregateType:
		return p.handleProductEvent(event)
	case category.AggregateType:
		return p.handleCategoryEvent(event)
	case user.AggregateType:
		return p.handleUserEvent(event)
	}
	return nil
}

func (p *Projector) handleProductEvent(event store.Event) error {
	switch event.EventType {
	case product.EventProductCreated:
		var e product.ProductCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionProducts, e.ProductID, &readmodel.ProductReadModel{
			ID:          e.ProductID,
			Name:        e.Name,
			Description: e.Description,
			Price:       e.Price,
			ImageURL:    e.ImageURL,
			CategoryID:  e.CategoryID,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.CreatedAt,
		})

	case product.EventProductRenamed:
		var e product.ProductRenamed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionProducts, e.ProductID, func(current any) any {
			prod := *current.(*readmodel.ProductReadModel)
			prod.Name = e.Name
			prod.UpdatedAt = e.RenamedAt
			return &prod
		})
	}
	return nil
}

func (p *Projector) handleCategoryEvent(event store.Event) error {
	switch event.EventType {
	case category.EventCategoryCreated:
		var e category.CategoryCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionCategories, e.CategoryID, &readmodel.CategoryReadModel{
			ID:        e.CategoryID,
			Name:      e.Name,
			Slug:      e.Slug,
			CreatedAt: e.CreatedAt,
		})

	case category.EventCategoryDeleted:
		var e category.CategoryDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Delete(store.CollectionCategories, e.CategoryID)
		// products of a deleted category become uncategorised
		for _, item := range p.readStore.GetAll(store.CollectionProducts) {
			prod := item.(*readmodel.ProductReadModel)
			if prod.CategoryID != e.CategoryID {
				continue
			}
			p.readStore.Update(store.CollectionProducts, prod.ID, func(current any) any {
				updated := *current.(*readmodel.ProductReadModel)
				updated.CategoryID = ""
				return &updated
			})
		}
	}
	return nil
}

func (p *Projector) handleUserEvent(event store.Event) error {
	switch event.EventType {
	case user.EventUserCreated:
		var e user.UserCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(store.CollectionUsers, e.UserID, &readmodel.UserReadModel{
			ID:           e.UserID,
			Email:        e.Email,
			PasswordHash: e.PasswordHash,
			Name:         e.Name,
			Role:         e.Role,
			CreatedAt:    e.CreatedAt,
		})

	case user.EventUserLoggedIn:
		var e user.UserLoggedIn
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(store.CollectionUsers, e.UserID, func(current any) any {
			u := *current.(*readmodel.UserReadModel)
			u.LastLoginAt = e.LoggedAt
			return &u
		})
	}
	return nil
}
