package domain

import "time"

type CustomerID int64

// OrderItem is a snapshot of a cart line taken when the order was created.
type OrderItem struct {
	ProductID   int64    `json:"product_id"`
	ProductName string   `json:"product_name"`
	UnitPrice   Money    `json:"unit_price"`
	Quantity    Quantity `json:"quantity"`
}

func (i OrderItem) TotalPrice() Money {
	return i.UnitPrice.Times(i.Quantity)
}

// Order is immutable after creation except for Status, which only moves
// forward from PENDING to a terminal state.
type Order struct {
	ID         int64         `json:"id"`
	CustomerID CustomerID    `json:"customer_id"`
	Status     PaymentStatus `json:"status"`
	TotalPrice Money         `json:"total_price"`
	Items      []OrderItem   `json:"items"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewOrderFromCart snapshots the cart. It does not reject empty carts;
// callers must check Cart.IsEmpty first.
func NewOrderFromCart(cart *Cart, customer CustomerID, now time.Time) *Order {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return &Order{
		CustomerID: customer,
		Status:     PaymentStatusPending,
		TotalPrice: cart.TotalPrice(),
		Items:      items,
		CreatedAt:  now,
	}
}

func (o *Order) IsPlacedBy(customer CustomerID) bool {
	return o.CustomerID == customer
}

// ApplyPaymentStatus moves the order to status. Re-applying the current
// status reports false with no error; leaving a terminal status is refused.
func (o *Order) ApplyPaymentStatus(status PaymentStatus) (bool, error) {
	if o.Status == status {
		return false, nil
	}
	if !CanTransitionTo(o.Status, status) {
		return false, ErrIllegalTransition
	}
	o.Status = status
	return true, nil
}
