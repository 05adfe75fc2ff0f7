package storefront

// Product as served by the catalog and embedded in cart items.
type Product struct {
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
}

type Category struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// CartItem is one line of the cart. Subtotal is computed by the server.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// ProductID returns the id of the item's product.
func (i CartItem) ProductID() string {
	return i.Product.UUID
}

// Cart is the server's view of the signed-in user's cart.
type Cart struct {
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
	Total  float64    `json:"total"`
}

// Find returns the line for productID.
func (c *Cart) Find(productID string) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.ProductID() == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// ItemCount is the sum of quantities across all lines.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Clone returns a copy that shares nothing with c.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}

// User is the account summary returned by auth endpoints.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}
