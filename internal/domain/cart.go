package domain

import (
	"time"

	"github.com/google/uuid"
)

// LineItem is a cart-scoped product selection. UnitPrice is the catalog price
// captured when the product was first added, not the current one.
type LineItem struct {
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   Money     `json:"unit_price"`
	Quantity    Quantity  `json:"quantity"`
	AddedAt     time.Time `json:"added_at"`
}

func (i LineItem) TotalPrice() Money {
	return i.UnitPrice.Times(i.Quantity)
}

type Cart struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []LineItem `json:"items"`
}

func NewCart(now time.Time) *Cart {
	return &Cart{
		ID:        uuid.New(),
		CreatedAt: now,
		Items:     []LineItem{},
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalPrice sums unit price * quantity over all items; zero for an empty cart.
func (c *Cart) TotalPrice() Money {
	var total Money
	for _, item := range c.Items {
		total = total.Add(item.TotalPrice())
	}
	return total
}

func (c *Cart) Item(productID int64) (LineItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}

// AddItem puts the product in the cart. A product already in the cart keeps
// its captured price and has its quantity increased.
func (c *Cart) AddItem(p Product, q Quantity, now time.Time) LineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Quantity += q
			return c.Items[i]
		}
	}
	item := LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.Price,
		Quantity:    q,
		AddedAt:     now,
	}
	c.Items = append(c.Items, item)
	return item
}

// Clear removes every item. Clearing an empty cart is a no-op.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
}
