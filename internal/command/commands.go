package command

// Product Commands
type CreateProduct struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	CategoryID  string  `json:"category"`
}

type RenameProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

// Category Commands
type CreateCategory struct {
	Name string `json:"name"`
}

type DeleteCategory struct {
	CategoryID string `json:"category_id"`
}

// Cart Commands
type AddToCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

type UpdateCartItem struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ClearCart struct {
	UserID string `json:"user_id"`
}
