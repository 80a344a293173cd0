package domain

import "time"

// Product is a catalog entry. Carts copy its name and price when an item is added.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Money     `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}
