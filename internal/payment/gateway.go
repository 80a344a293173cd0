// Package payment hides the external payment processor behind Gateway.
package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/go_store/internal/domain"
)

var (
	// ErrPayment covers every processor-side failure when opening a session.
	ErrPayment = errors.New("payment processor error")
	// ErrPaymentRejected marks a processor refusal of the request itself
	// (4xx other than rate limiting). It always comes wrapped with ErrPayment.
	ErrPaymentRejected = errors.New("payment request rejected")
	// ErrMissingWebhookSecret is returned when a gateway is built without a key
	// to verify webhooks with.
	ErrMissingWebhookSecret = errors.New("webhook secret is required")
	// ErrInvalidSignature rejects a webhook before its body is interpreted.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent is a correctly signed event whose payload cannot be mapped to an order.
	ErrMalformedEvent = errors.New("malformed payment event")
)

// CheckoutSession is the processor-side payment page opened for an order.
type CheckoutSession struct {
	ID  string
	URL string
}

type Gateway interface {
	// CreateCheckoutSession opens a one-time payment session for a persisted
	// order. Failures wrap ErrPayment; nothing is retried.
	CreateCheckoutSession(ctx context.Context, order *domain.Order) (*CheckoutSession, error)
	// ParseWebhookRequest verifies and decodes a webhook delivery. It returns
	// nil, nil for event types that do not carry a payment outcome.
	ParseWebhookRequest(headers http.Header, body []byte) (*domain.PaymentResult, error)
}

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"

	orderIDMetadataKey = "order_id"
)

// statusForEvent maps the closed set of outcome events to an order status.
func statusForEvent(eventType string) (domain.PaymentStatus, bool) {
	switch eventType {
	case EventPaymentSucceeded:
		return domain.PaymentStatusPaid, true
	case EventPaymentFailed:
		return domain.PaymentStatusFailed, true
	}
	return "", false
}
