package payment

import (
	"testing"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/stretchr/testify/require"
)

func widgetOrder(id int64) *domain.Order {
	cart := domain.NewCart(time.Now())
	cart.AddItem(domain.Product{ID: 1, Name: "Widget", Price: domain.MustMoney("19.99")}, 2, time.Now())
	order := domain.NewOrderFromCart(cart, 9, time.Now())
	order.ID = id
	return order
}

func newFake(t *testing.T, baseURL, secret string) *FakeGateway {
	t.Helper()
	g, err := NewFakeGateway(baseURL, secret)
	require.NoError(t, err)
	return g
}
