package category

import (
	"context"
	"testing"

	"github.com/example/ec-storefront/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCategoryService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	return NewService(eventStore), eventStore
}

// ============================================
// Slug Generation Tests
// ============================================

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Electronics", "electronics"},
		{"Home & Garden", "home-garden"},
		{"kids_toys", "kids-toys"},
		{"  Spaced  Out  ", "spaced-out"},
		{"Café", "caf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, generateSlug(tt.name))
		})
	}
}

// ============================================
// Create and Delete Tests
// ============================================

func TestService_Create(t *testing.T) {
	service, eventStore := newTestCategoryService()

	c, err := service.Create(context.Background(), "Home & Garden")

	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Home & Garden", c.Name)
	assert.Equal(t, "home-garden", c.Slug)
	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventCategoryCreated, eventStore.AppendCalls[0].EventType)
}

func TestService_Create_EmptyName(t *testing.T) {
	service, eventStore := newTestCategoryService()

	_, err := service.Create(context.Background(), "  ")

	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_Delete(t *testing.T) {
	service, eventStore := newTestCategoryService()
	ctx := context.Background()
	c, err := service.Create(ctx, "Kitchen")
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, c.ID))
	assert.ErrorIs(t, service.Delete(ctx, c.ID), ErrCategoryNotFound)
	assert.Equal(t, []string{EventCategoryCreated, EventCategoryDeleted}, eventStore.EventTypes())
}

func TestService_Delete_NotFound(t *testing.T) {
	service, _ := newTestCategoryService()

	err := service.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
