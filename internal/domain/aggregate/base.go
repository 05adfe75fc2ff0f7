package aggregate

import (
	"context"
	"fmt"

	"github.com/example/ec-storefront/internal/infrastructure/store"
)

// Aggregate defines the interface for event-sourced aggregates
type Aggregate interface {
	GetID() string
	GetVersion() int
	ApplyEvent(store.Event) error
}

// LoadAggregate rebuilds an aggregate by replaying its events. The boolean
// reports whether any event was found.
func LoadAggregate[T Aggregate](
	ctx context.Context,
	eventStore store.EventStoreInterface,
	id string,
	newAggregate func() T,
) (T, bool, error) {
	agg := newAggregate()

	events, err := eventStore.GetEvents(ctx, id)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("failed to load events for %s: %w", id, err)
	}

	for _, event := range events {
		if err := agg.ApplyEvent(event); err != nil {
			var zero T
			return zero, false, fmt.Errorf("failed to apply event: %w", err)
		}
	}

	return agg, len(events) > 0, nil
}
