package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_store/internal/domain"
)

type OrderCache interface {
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	Set(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, orderID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
