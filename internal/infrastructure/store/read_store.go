package store

import (
	"sort"
	"sync"
)

// Collections held by the read store.
const (
	CollectionProducts   = "products"
	CollectionCategories = "categories"
	CollectionUsers      = "users"
	CollectionSessions   = "sessions"
)

// ReadStore is an in-memory read model store
type ReadStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any // collection -> id -> data
}

func NewReadStore() *ReadStore {
	return &ReadStore{
		data: make(map[string]map[string]any),
	}
}

// Set stores a read model
func (rs *ReadStore) Set(collection, id string, data any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.data[collection] == nil {
		rs.data[collection] = make(map[string]any)
	}
	rs.data[collection][id] = data
}

// Get retrieves a read model by id
func (rs *ReadStore) Get(collection, id string) (any, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	data, ok := rs.data[collection][id]
	return data, ok
}

// GetAll returns every item in a collection ordered by id
func (rs *ReadStore) GetAll(collection string) []any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	ids := make([]string, 0, len(rs.data[collection]))
	for id := range rs.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, rs.data[collection][id])
	}
	return items
}

// Find returns the first item, in id order, that match accepts
func (rs *ReadStore) Find(collection string, match func(any) bool) (any, bool) {
	for _, item := range rs.GetAll(collection) {
		if match(item) {
			return item, true
		}
	}
	return nil, false
}

// Delete removes a read model
func (rs *ReadStore) Delete(collection, id string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.data[collection] != nil {
		delete(rs.data[collection], id)
	}
}

// Take removes and returns a read model in one step, so of several callers
// racing for the same id exactly one gets it.
func (rs *ReadStore) Take(collection, id string) (any, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	data, ok := rs.data[collection][id]
	if ok {
		delete(rs.data[collection], id)
	}
	return data, ok
}

// Update modifies a read model in place. It reports false when id is unknown.
func (rs *ReadStore) Update(collection, id string, updateFn func(current any) any) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	current, ok := rs.data[collection][id]
	if !ok {
		return false
	}
	rs.data[collection][id] = updateFn(current)
	return true
}
