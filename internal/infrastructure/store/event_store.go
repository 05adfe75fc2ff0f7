package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/ec-storefront/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// NewEvent builds the next event for an aggregate at the given version.
func NewEvent(aggregateID, aggregateType, eventType string, data any, version int) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
		Version:       version,
	}, nil
}

// dispatcher fans appended events out to in-process handlers and the broker.
type dispatcher struct {
	publisher Publisher
	logger    *zap.Logger

	mu       sync.RWMutex
	handlers []EventHandler
}

// Subscribe registers h to run after every append.
func (d *dispatcher) Subscribe(h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// dispatch runs handlers first so read models are current by the time the
// caller returns. Broker failures are logged; the event is already durable.
func (d *dispatcher) dispatch(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			return fmt.Errorf("failed to handle %s: %w", event.EventType, err)
		}
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, event.AggregateID, event); err != nil {
			d.logger.Warn("failed to publish event",
				zap.String("event_type", event.EventType),
				zap.String("aggregate_id", event.AggregateID),
				zap.Error(err))
		}
	}
	return nil
}

// EventStore keeps events in memory and publishes them
type EventStore struct {
	dispatcher

	mu     sync.RWMutex
	events map[string][]Event // aggregateID -> events
	order  []string           // event ids in append order
	byID   map[string]Event
}

// NewEventStore creates an in-memory store. publisher may be nil.
func NewEventStore(publisher Publisher, logger *zap.Logger) *EventStore {
	return &EventStore{
		dispatcher: dispatcher{publisher: publisher, logger: logging.Component(logger, "event-store")},
		events:     make(map[string][]Event),
		byID:       make(map[string]Event),
	}
}

// Append stores an event and hands it to subscribers and the publisher
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	es.mu.Lock()
	event, err := NewEvent(aggregateID, aggregateType, eventType, data, len(es.events[aggregateID])+1)
	if err != nil {
		es.mu.Unlock()
		return nil, err
	}
	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.order = append(es.order, event.ID)
	es.byID[event.ID] = event
	es.mu.Unlock()

	if err := es.dispatch(ctx, event); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEvents returns all events for an aggregate in version order
func (es *EventStore) GetEvents(_ context.Context, aggregateID string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return append([]Event(nil), es.events[aggregateID]...), nil
}

// GetAllEvents returns every event in append order
func (es *EventStore) GetAllEvents(_ context.Context) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	all := make([]Event, 0, len(es.order))
	for _, id := range es.order {
		all = append(all, es.byID[id])
	}
	return all, nil
}

// Replay feeds stored events to h, oldest first.
func Replay(ctx context.Context, es EventStoreInterface, h EventHandler) (int, error) {
	events, err := es.GetAllEvents(ctx)
	if err != nil {
		return 0, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	for _, event := range events {
		if err := h(ctx, event); err != nil {
			return 0, fmt.Errorf("failed to replay event %s: %w", event.ID, err)
		}
	}
	return len(events), nil
}
