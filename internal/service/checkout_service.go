package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/metrics"
	"github.com/fjod/go_store/internal/payment"
	r "github.com/fjod/go_store/internal/repository"
	"github.com/google/uuid"
)

const defaultCheckoutTimeout = 30 * time.Second

type CheckoutResponse struct {
	OrderID     int64  `json:"orderId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type CheckoutService interface {
	Checkout(ctx context.Context, cartID uuid.UUID, customer domain.CustomerID) (*CheckoutResponse, error)
}

type CheckoutServiceImpl struct {
	repo    r.RepoInterface
	gateway payment.Gateway
	metrics *metrics.Metrics
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewCheckoutService wires the orchestrator. timeout bounds a whole attempt,
// processor call included, independently of the caller's context.
func NewCheckoutService(repo r.RepoInterface, gateway payment.Gateway, m *metrics.Metrics, log *slog.Logger, timeout time.Duration) *CheckoutServiceImpl {
	if timeout <= 0 {
		timeout = defaultCheckoutTimeout
	}
	return &CheckoutServiceImpl{
		repo:    repo,
		gateway: gateway,
		metrics: m,
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// Checkout turns the cart into a PENDING order and opens a payment session
// for it. The cart row stays locked for the whole attempt, so concurrent
// checkouts and item additions on the same cart run one after another.
//
// If the processor fails, the order is deleted, the cart is left as it was
// and the returned error wraps payment.ErrPayment. On success the cart is
// cleared and an order.created event is queued, all in one commit.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, cartID uuid.UUID, customer domain.CustomerID) (*CheckoutResponse, error) {
	start := time.Now()

	// a client going away must not undo an order the processor already knows about
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var resp *CheckoutResponse
	var paymentErr error
	err := s.repo.WithTx(ctx, func(tx r.Tx) error {
		cart, err := tx.Carts().GetWithItemsForUpdate(ctx, cartID)
		if errors.Is(err, r.ErrCartNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if cart.IsEmpty() {
			return ErrCartEmpty
		}

		order := domain.NewOrderFromCart(cart, customer, s.now().UTC())
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		session, err := s.gateway.CreateCheckoutSession(ctx, order)
		if err != nil {
			if !errors.Is(err, payment.ErrPayment) {
				err = fmt.Errorf("%w: %w", payment.ErrPayment, err)
			}
			if delErr := tx.Orders().Delete(ctx, order.ID); delErr != nil {
				return errors.Join(err, fmt.Errorf("delete order %d: %w", order.ID, delErr))
			}
			s.log.WarnContext(ctx, "checkout compensated", "order_id", order.ID, "cart_id", cartID, "error", err)
			paymentErr = err
			return nil
		}

		if err := tx.Carts().Clear(ctx, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if err := tx.Outbox().Insert(ctx, orderEvent(r.EventOrderCreated, order)); err != nil {
			return err
		}

		resp = &CheckoutResponse{OrderID: order.ID, CheckoutURL: session.URL}
		s.log.InfoContext(ctx, "checkout created",
			"order_id", order.ID,
			"customer_id", customer,
			"total", order.TotalPrice.String(),
			"session_id", session.ID)
		return nil
	})

	switch {
	case err == nil && paymentErr != nil:
		err = paymentErr
	case err != nil && !errors.Is(err, ErrCartNotFound) && !errors.Is(err, ErrCartEmpty):
		s.log.ErrorContext(ctx, "checkout failed", "cart_id", cartID, "error", err)
	}
	s.metrics.ObserveCheckout(checkoutOutcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCartNotFound):
		return "cart_not_found"
	case errors.Is(err, ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, payment.ErrPayment):
		return "payment_error"
	default:
		return "error"
	}
}

func orderEvent(eventType string, order *domain.Order) *r.OutboxEvent {
	// Order only holds marshalable fields; the error cannot happen.
	payload, _ := json.Marshal(order)
	return &r.OutboxEvent{
		ID:          uuid.New(),
		AggregateId: strconv.FormatInt(order.ID, 10),
		EventType:   eventType,
		Payload:     payload,
	}
}
