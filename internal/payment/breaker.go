package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/pkg/circuitbreaker"
)

// BreakerGateway bounds session calls with a timeout and a circuit breaker.
// Webhook parsing is local and passes straight through.
type BreakerGateway struct {
	next    Gateway
	timeout time.Duration
	breaker *circuitbreaker.Breaker[*CheckoutSession]
}

// NewBreakerGateway trips only on processor trouble. Rejected requests are
// the caller's fault and do not count against the processor.
func NewBreakerGateway(next Gateway, timeout time.Duration, cfg circuitbreaker.Config, log *slog.Logger) *BreakerGateway {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrPaymentRejected)
	}
	return &BreakerGateway{
		next:    next,
		timeout: timeout,
		breaker: circuitbreaker.New[*CheckoutSession](cfg, log),
	}
}

func (g *BreakerGateway) CreateCheckoutSession(ctx context.Context, order *domain.Order) (*CheckoutSession, error) {
	s, err := g.breaker.Execute(func() (*CheckoutSession, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.next.CreateCheckoutSession(callCtx, order)
	})
	if err == nil {
		return s, nil
	}
	if errors.Is(err, ErrPayment) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrPayment, err)
}

func (g *BreakerGateway) ParseWebhookRequest(headers http.Header, body []byte) (*domain.PaymentResult, error) {
	return g.next.ParseWebhookRequest(headers, body)
}
