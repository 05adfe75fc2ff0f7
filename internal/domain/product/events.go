package product

import "time"

const (
	EventProductCreated = "ProductCreated"
	EventProductRenamed = "ProductRenamed"
)

type ProductCreated struct {
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"image_url"`
	CategoryID  string    `json:"category_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProductRenamed struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	RenamedAt time.Time `json:"renamed_at"`
}
