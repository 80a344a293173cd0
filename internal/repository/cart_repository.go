package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_store/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type cartRepository struct {
	q querier
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO carts (id, created_at) VALUES ($1, $2)`,
		cart.ID, cart.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCart
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *cartRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.get(ctx, `SELECT id, created_at FROM carts WHERE id = $1`, id)
}

func (r *cartRepository) GetWithItemsForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.get(ctx, `SELECT id, created_at FROM carts WHERE id = $1 FOR UPDATE`, id)
}

func (r *cartRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.q.QueryRowContext(ctx, query, id).Scan(&cart.ID, &cart.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT product_id, product_name, unit_price, quantity, added_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY added_at, product_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return &cart, nil
}

// SaveItem inserts the line or overwrites the quantity of an existing one.
func (r *cartRepository) SaveItem(ctx context.Context, cartID uuid.UUID, item domain.LineItem) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, product_name, unit_price, quantity, added_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.AddedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrCartNotFound
		}
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
