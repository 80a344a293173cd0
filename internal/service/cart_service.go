package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_store/internal/catalog"
	"github.com/fjod/go_store/internal/domain"
	r "github.com/fjod/go_store/internal/repository"
	"github.com/google/uuid"
)

// ProductCatalog is the slice of the catalog carts need.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type CartService interface {
	CreateCart(ctx context.Context) (*domain.Cart, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID uuid.UUID, productID int64, quantity domain.Quantity) (*domain.LineItem, error)
}

type CartServiceImpl struct {
	repo    r.RepoInterface
	catalog ProductCatalog
	log     *slog.Logger
	now     func() time.Time
}

func NewCartService(repo r.RepoInterface, products ProductCatalog, log *slog.Logger) *CartServiceImpl {
	return &CartServiceImpl{
		repo:    repo,
		catalog: products,
		log:     log,
		now:     time.Now,
	}
}

func (s *CartServiceImpl) CreateCart(ctx context.Context) (*domain.Cart, error) {
	cart := domain.NewCart(s.now().UTC())
	if err := s.repo.Carts().Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

func (s *CartServiceImpl) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repo.Carts().GetWithItems(ctx, cartID)
	if errors.Is(err, r.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem captures the product's current name and price. Adding a product
// already in the cart increases its quantity. The cart row is locked so the
// addition cannot interleave with a checkout of the same cart.
func (s *CartServiceImpl) AddItem(ctx context.Context, cartID uuid.UUID, productID int64, quantity domain.Quantity) (*domain.LineItem, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	var added domain.LineItem
	err = s.repo.WithTx(ctx, func(tx r.Tx) error {
		cart, err := tx.Carts().GetWithItemsForUpdate(ctx, cartID)
		if errors.Is(err, r.ErrCartNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		added = cart.AddItem(*product, quantity, s.now().UTC())
		return tx.Carts().SaveItem(ctx, cartID, added)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "cart item added", "cart_id", cartID, "product_id", productID, "quantity", added.Quantity)
	return &added, nil
}
