package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/command"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/query"
	"go.uber.org/zap"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logging.Component(logger, "api"),
	}
}

// Product Handlers

// GetProducts lists the catalog. ?categories=<id> narrows it to one category.
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	categoryID := strings.TrimSpace(r.URL.Query().Get("categories"))
	products := h.queryHandler.ListProducts(categoryID)
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryHandler.GetProduct(r.PathValue("id"))
	if !ok {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// UpdateProduct renames a product
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var cmd command.RenameProduct
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ProductID = id

	if _, err := h.cmdHandler.RenameProduct(r.Context(), cmd); err != nil {
		switch {
		case errors.Is(err, product.ErrProductNotFound):
			respondJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, product.ErrInvalidName):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			h.internalError(w, "failed to rename product", err)
		}
		return
	}

	p, ok := h.queryHandler.GetProduct(id)
	if !ok {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	if err := h.cmdHandler.AddToCart(r.Context(), cmd); err != nil {
		h.cartError(w, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveFromCart{
		UserID:    middleware.GetUserID(r.Context()),
		ProductID: r.PathValue("productId"),
	}
	if err := h.cmdHandler.RemoveFromCart(r.Context(), cmd); err != nil {
		h.cartError(w, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateCartItem
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())
	cmd.ProductID = r.PathValue("productId")

	if err := h.cmdHandler.UpdateCartItem(r.Context(), cmd); err != nil {
		h.cartError(w, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	view, err := h.queryHandler.GetCart(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.internalError(w, "failed to load cart", err)
		return
	}
	respondJSON(w, status, view)
}

func (h *Handlers) cartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrItemNotInCart), errors.Is(err, product.ErrProductNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidProduct):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrVersionConflict):
		respondJSONError(w, "Cart was changed by another request, try again", http.StatusConflict)
	default:
		h.internalError(w, "cart update failed", err)
	}
}

func (h *Handlers) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	respondJSONError(w, "Internal server error", http.StatusInternalServerError)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
