package service

import "errors"

var (
	ErrCartNotFound   = errors.New("cart not found")
	ErrCartEmpty      = errors.New("cart is empty, nothing to checkout")
	ErrOrderNotFound  = errors.New("order not found")
	ErrForbiddenOrder = errors.New("order was placed by another customer")
)
