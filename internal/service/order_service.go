package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fjod/go_store/internal/cache"
	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/events"
	r "github.com/fjod/go_store/internal/repository"
	"golang.org/x/sync/singleflight"
)

type OrderService interface {
	ListOrders(ctx context.Context, customer domain.CustomerID) ([]*domain.Order, error)
	GetOrder(ctx context.Context, customer domain.CustomerID, orderID int64) (*domain.Order, error)
	PaymentHistory(ctx context.Context, customer domain.CustomerID, orderID int64) ([]*events.PaymentEvent, error)
}

type OrderServiceImpl struct {
	repo    r.RepoInterface
	cache   cache.OrderCache
	journal events.Journal
	log     *slog.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewOrderService(repo r.RepoInterface, c cache.OrderCache, journal events.Journal, log *slog.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{
		repo:    repo,
		cache:   c,
		journal: journal,
		log:     log,
	}
}

// ListOrders reads straight from the store so a customer always sees fresh statuses.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, customer domain.CustomerID) ([]*domain.Order, error) {
	orders, err := s.repo.Orders().ListByCustomer(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, customer domain.CustomerID, orderID int64) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPlacedBy(customer) {
		return nil, ErrForbiddenOrder
	}
	return order, nil
}

func (s *OrderServiceImpl) PaymentHistory(ctx context.Context, customer domain.CustomerID, orderID int64) ([]*events.PaymentEvent, error) {
	if _, err := s.GetOrder(ctx, customer, orderID); err != nil {
		return nil, err
	}
	history, err := s.journal.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("payment history: %w", err)
	}
	return history, nil
}

func (s *OrderServiceImpl) load(ctx context.Context, orderID int64) (*domain.Order, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(strconv.FormatInt(orderID, 10), func() (interface{}, error) {
		order, err := s.cache.Get(ctx, orderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "order cache get failed", "order_id", orderID, "error", err)
		}

		order, err = s.repo.Orders().GetWithItems(ctx, orderID)
		if errors.Is(err, r.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, order); err != nil {
				s.log.Warn("order cache set failed", "order_id", order.ID, "error", err)
			}
		}()

		return order, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}
