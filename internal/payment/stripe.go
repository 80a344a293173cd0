package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	centsPerUnit          = 100
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// WebsiteURL is the storefront the processor redirects back to.
	WebsiteURL string
	Currency   string
	// APIURL overrides the Stripe API host; empty means the real one.
	APIURL string
	// Timeout bounds every session request.
	Timeout time.Duration
	// Tolerance is the accepted age of a webhook signature.
	Tolerance time.Duration
}

type StripeGateway struct {
	sessions      session.Client
	webhookSecret string
	websiteURL    string
	currency      string
	tolerance     time.Duration
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeGateway{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		websiteURL:    cfg.WebsiteURL,
		currency:      currency,
		tolerance:     tolerance,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, order *domain.Order) (*CheckoutSession, error) {
	orderID := strconv.FormatInt(order.ID, 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.websiteURL + "/checkout-success?orderId=" + orderID),
		CancelURL:         stripe.String(g.websiteURL + "/checkout-cancel"),
		ClientReferenceID: stripe.String(orderID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{orderIDMetadataKey: orderID},
		},
	}
	params.Context = ctx
	for _, item := range order.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity.Int64()),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(item.UnitPrice.MinorUnits(centsPerUnit)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.ProductName),
				},
			},
		})
	}

	s, err := g.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && isRejection(stripeErr.HTTPStatusCode) {
			return nil, fmt.Errorf("%w: %w: create checkout session for order %d: %v", ErrPayment, ErrPaymentRejected, order.ID, err)
		}
		return nil, fmt.Errorf("%w: create checkout session for order %d: %v", ErrPayment, order.ID, err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhookRequest(headers http.Header, body []byte) (*domain.PaymentResult, error) {
	event, err := webhook.ConstructEventWithOptions(body, headers.Get(stripeSignatureHeader), g.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                g.tolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	status, ok := statusForEvent(string(event.Type))
	if !ok {
		return nil, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, event.ID)
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %v", ErrMalformedEvent, err)
	}
	orderID, err := strconv.ParseInt(intent.Metadata[orderIDMetadataKey], 10, 64)
	if err != nil || orderID <= 0 {
		return nil, fmt.Errorf("%w: event %s has no usable order id", ErrMalformedEvent, event.ID)
	}

	return &domain.PaymentResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		OrderID:   orderID,
		Status:    status,
	}, nil
}

// isRejection reports a processor 4xx that retrying the same request cannot fix.
func isRejection(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
