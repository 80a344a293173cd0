package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_store/internal/domain"
)

const fakeSignatureHeader = "X-Fake-Signature"

// FakeGateway is a deterministic processor for local runs and tests. Its
// webhooks are signed as "t=<unix>,v1=<hex hmac-sha256 of t.body>".
type FakeGateway struct {
	baseURL   string
	secret    string
	tolerance time.Duration
	now       func() time.Time

	mu       sync.Mutex
	requests []*domain.Order
	failWith error
}

// NewFakeGateway refuses an empty secret: anyone could sign webhooks with it.
func NewFakeGateway(baseURL, secret string) (*FakeGateway, error) {
	if secret == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &FakeGateway{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		secret:    secret,
		tolerance: 5 * time.Minute,
		now:       time.Now,
	}, nil
}

// FailWith makes subsequent session requests fail with err wrapped in
// ErrPayment, err itself stays matchable; nil restores success.
func (g *FakeGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith = err
}

// Requests returns the orders sessions were requested for, oldest first.
func (g *FakeGateway) Requests() []*domain.Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*domain.Order(nil), g.requests...)
}

func (g *FakeGateway) CreateCheckoutSession(ctx context.Context, order *domain.Order) (*CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, order)
	if g.failWith != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayment, g.failWith)
	}
	id := strconv.FormatInt(order.ID, 10)
	return &CheckoutSession{
		ID:  "fake_" + id,
		URL: g.baseURL + "/pay/" + id,
	}, nil
}

// FakeEvent is the webhook body FakeGateway understands.
type FakeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	OrderID int64  `json:"order_id"`
}

func (g *FakeGateway) ParseWebhookRequest(headers http.Header, body []byte) (*domain.PaymentResult, error) {
	if err := g.verify(headers.Get(fakeSignatureHeader), body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event FakeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	status, ok := statusForEvent(event.Type)
	if !ok {
		return nil, nil
	}
	if event.OrderID <= 0 {
		return nil, fmt.Errorf("%w: event %s has no usable order id", ErrMalformedEvent, event.ID)
	}
	return &domain.PaymentResult{
		EventID:   event.ID,
		EventType: event.Type,
		OrderID:   event.OrderID,
		Status:    status,
	}, nil
}

// Sign produces headers that ParseWebhookRequest accepts for body.
func (g *FakeGateway) Sign(body []byte, at time.Time) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set(fakeSignatureHeader, "t="+ts+",v1="+g.mac(ts, body))
	return h
}

func (g *FakeGateway) mac(ts string, body []byte) string {
	m := hmac.New(sha256.New, []byte(g.secret))
	m.Write([]byte(ts))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func (g *FakeGateway) verify(header string, body []byte) error {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return errors.New("missing signature header")
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp %q", ts)
	}
	if g.now().Sub(time.Unix(unix, 0)) > g.tolerance {
		return errors.New("timestamp outside tolerance")
	}
	expected, _ := hex.DecodeString(g.mac(ts, body))
	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(expected, got) {
		return errors.New("signature mismatch")
	}
	return nil
}
