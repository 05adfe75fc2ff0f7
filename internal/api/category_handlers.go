package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/ec-storefront/internal/command"
	"github.com/example/ec-storefront/internal/domain/category"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/query"
	"go.uber.org/zap"
)

// CategoryHandlers handles category-related HTTP requests
type CategoryHandlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

// NewCategoryHandlers creates a new CategoryHandlers instance
func NewCategoryHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *CategoryHandlers {
	return &CategoryHandlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logging.Component(logger, "categories"),
	}
}

// ListCategories returns all categories
func (h *CategoryHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListCategories())
}

// CreateCategory handles category creation (admin only)
func (h *CategoryHandlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateCategory
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.cmdHandler.CreateCategory(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, category.ErrInvalidName) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create category", zap.Error(err))
		respondJSONError(w, "Failed to create category", http.StatusInternalServerError)
		return
	}

	view, ok := h.queryHandler.GetCategory(created.ID)
	if !ok {
		respondJSONError(w, "Category not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// DeleteCategory handles category deletion (admin only)
func (h *CategoryHandlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteCategory{CategoryID: r.PathValue("id")}
	if err := h.cmdHandler.DeleteCategory(r.Context(), cmd); err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			respondJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete category", zap.Error(err))
		respondJSONError(w, "Failed to delete category", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Category deleted",
	})
}
