package models

// CartItem is a product line held in a cart. Price is in major currency units.
type CartItem struct {
	ID       string  `json:"id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
	Image    string  `json:"image,omitempty"`
	Category string  `json:"category,omitempty"`
	Slug     string  `json:"slug,omitempty"`
}

// Cart is the JSON view of a cart store.
type Cart struct {
	ID    string     `json:"id"`
	Items []CartItem `json:"items"`
	Count int        `json:"count"`
	Total float64    `json:"total"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}
