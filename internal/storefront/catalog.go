package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/ec-storefront/internal/client"
)

var (
	ErrEmptyName = errors.New("name must not be empty")
	ErrEmptyID   = errors.New("id must not be empty")
)

type CatalogService struct {
	client *client.Client
}

func NewCatalogService(c *client.Client) *CatalogService {
	return &CatalogService{client: c}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]Product, error) {
	return s.products(ctx, nil)
}

// ProductsByCategory lists the products filed under categoryID.
func (s *CatalogService) ProductsByCategory(ctx context.Context, categoryID string) ([]Product, error) {
	if categoryID == "" {
		return nil, ErrEmptyID
	}
	return s.products(ctx, url.Values{"categories": {categoryID}})
}

func (s *CatalogService) products(ctx context.Context, query url.Values) ([]Product, error) {
	resp, err := s.client.Do(ctx, &client.Request{Method: http.MethodGet, Path: "/products/all", Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	var products []Product
	if err := decodeList(resp.Body, "products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]Category, error) {
	resp, err := s.client.Do(ctx, &client.Request{Method: http.MethodGet, Path: "/categories/all"})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	var categories []Category
	if err := decodeList(resp.Body, "categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// UpdateProduct renames a product. Admin only.
func (s *CatalogService) UpdateProduct(ctx context.Context, id, name string) (*Product, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	var product Product
	if err := s.client.Patch(ctx, "/products/"+url.PathEscape(id), map[string]string{"name": name}, &product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

// CreateCategory adds a category. Admin only.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	var category Category
	if err := s.client.Post(ctx, "/categories", map[string]string{"name": name}, &category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &category, nil
}

// DeleteCategory removes a category. Admin only.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := s.client.Delete(ctx, "/categories/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// decodeList accepts either a bare JSON array or an object wrapping the array
// under key.
func decodeList(body []byte, key string, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return fmt.Errorf("failed to decode %s: %w", key, err)
		}
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	raw, ok := envelope[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
