package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/infrastructure/store"
)

// MockEventStore records appends and keeps events in memory
type MockEventStore struct {
	mu     sync.RWMutex
	events map[string][]store.Event
	all    []store.Event

	handlers []store.EventHandler

	AppendCalls []AppendCall
	AppendErr   error
	GetErr      error
}

// Subscribe registers h to run after every successful append
func (m *MockEventStore) Subscribe(h store.EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// AppendCall records parameters passed to Append
type AppendCall struct {
	AggregateID   string
	AggregateType string
	EventType     string
	Data          any
}

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{events: make(map[string][]store.Event)}
}

func (m *MockEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, AppendCall{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
	})
	if m.AppendErr != nil {
		m.mu.Unlock()
		return nil, m.AppendErr
	}

	event, err := store.NewEvent(aggregateID, aggregateType, eventType, data, len(m.events[aggregateID])+1)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.events[aggregateID] = append(m.events[aggregateID], event)
	m.all = append(m.all, event)
	handlers := m.handlers
	m.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			return nil, err
		}
	}
	return &event, nil
}

func (m *MockEventStore) GetEvents(ctx context.Context, aggregateID string) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return append([]store.Event(nil), m.events[aggregateID]...), nil
}

func (m *MockEventStore) GetAllEvents(ctx context.Context) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return append([]store.Event(nil), m.all...), nil
}

// EventTypes lists appended event types in order
func (m *MockEventStore) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.all))
	for _, e := range m.all {
		types = append(types, e.EventType)
	}
	return types
}
