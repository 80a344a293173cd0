package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/events"
	"github.com/fjod/go_store/internal/service"
	"github.com/google/uuid"
)

type CheckoutServiceMock struct {
	resp     *service.CheckoutResponse
	err      error
	cartID   uuid.UUID
	customer domain.CustomerID
	calls    int
}

func (m *CheckoutServiceMock) Checkout(_ context.Context, cartID uuid.UUID, customer domain.CustomerID) (*service.CheckoutResponse, error) {
	m.calls++
	m.cartID = cartID
	m.customer = customer
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

type WebhookServiceMock struct {
	err     error
	body    []byte
	headers http.Header
}

func (m *WebhookServiceMock) HandleWebhookEvent(_ context.Context, headers http.Header, body []byte) error {
	m.headers = headers
	m.body = body
	return m.err
}

type OrderServiceMock struct {
	orders   []*domain.Order
	order    *domain.Order
	history  []*events.PaymentEvent
	err      error
	customer domain.CustomerID
	orderID  int64
}

func (m *OrderServiceMock) ListOrders(_ context.Context, customer domain.CustomerID) ([]*domain.Order, error) {
	m.customer = customer
	return m.orders, m.err
}

func (m *OrderServiceMock) GetOrder(_ context.Context, customer domain.CustomerID, orderID int64) (*domain.Order, error) {
	m.customer, m.orderID = customer, orderID
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *OrderServiceMock) PaymentHistory(_ context.Context, customer domain.CustomerID, orderID int64) ([]*events.PaymentEvent, error) {
	m.customer, m.orderID = customer, orderID
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

type CartServiceMock struct {
	cart      *domain.Cart
	item      *domain.LineItem
	err       error
	productID int64
	quantity  domain.Quantity
}

func (m *CartServiceMock) CreateCart(context.Context) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *CartServiceMock) GetCart(_ context.Context, _ uuid.UUID) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *CartServiceMock) AddItem(_ context.Context, _ uuid.UUID, productID int64, quantity domain.Quantity) (*domain.LineItem, error) {
	m.productID, m.quantity = productID, quantity
	if m.err != nil {
		return nil, m.err
	}
	return m.item, nil
}
