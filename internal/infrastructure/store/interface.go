package store

import (
	"context"
	"errors"
)

// ErrVersionConflict means another writer appended to the same aggregate
// between the version read and the insert.
var ErrVersionConflict = errors.New("concurrent write to aggregate")

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
}

// Publisher ships appended events to a broker. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// EventHandler is called synchronously for every appended event.
type EventHandler func(ctx context.Context, event Event) error
