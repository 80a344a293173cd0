package repository

import "errors"

var (
	ErrCartNotFound  = errors.New("cart not found")
	ErrOrderNotFound = errors.New("order not found")
	ErrDuplicateCart = errors.New("cart already exists")
)
