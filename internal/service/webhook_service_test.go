package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/events"
	"github.com/fjod/go_store/internal/metrics"
	"github.com/fjod/go_store/internal/payment"
	r "github.com/fjod/go_store/internal/repository"
	"github.com/fjod/go_store/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	store   *MockStore
	gateway *payment.FakeGateway
	cache   *MockCache
	journal *MockJournal
	svc     *WebhookServiceImpl
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		store:   NewMockStore(),
		gateway: newFakeGateway(t, "whsec"),
		cache:   NewMockCache(),
		journal: &MockJournal{},
	}
	f.svc = NewWebhookService(f.store, f.gateway, f.cache, f.journal, metrics.New(), logger.Discard())
	return f
}

func (f *webhookFixture) pendingOrder() *domain.Order {
	return f.store.PutOrder(&domain.Order{
		CustomerID: customer,
		Status:     domain.PaymentStatusPending,
		TotalPrice: domain.MustMoney("39.98"),
		CreatedAt:  time.Now(),
	})
}

func (f *webhookFixture) deliver(t *testing.T, eventID, eventType string, orderID int64) error {
	t.Helper()
	body, err := json.Marshal(payment.FakeEvent{ID: eventID, Type: eventType, OrderID: orderID})
	require.NoError(t, err)
	return f.svc.HandleWebhookEvent(context.Background(), f.gateway.Sign(body, time.Now()), body)
}

func statusEvents(store *MockStore) []*r.OutboxEvent {
	var out []*r.OutboxEvent
	for _, e := range store.OutboxEvents() {
		if e.EventType == r.EventOrderPaid || e.EventType == r.EventOrderFailed {
			out = append(out, e)
		}
	}
	return out
}

func TestHandleWebhookEvent_PaymentSucceeded(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.pendingOrder()

	err := f.deliver(t, "evt_1", payment.EventPaymentSucceeded, order.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, f.store.Order(order.ID).Status)
	changes := statusEvents(f.store)
	require.Len(t, changes, 1)
	assert.Equal(t, r.EventOrderPaid, changes[0].EventType)
	assert.Equal(t, []int64{order.ID}, f.cache.Deletes)
	recorded := f.journal.Recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "evt_1", recorded[0].EventID)
}

func TestHandleWebhookEvent_PaymentFailed(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.pendingOrder()

	err := f.deliver(t, "evt_1", payment.EventPaymentFailed, order.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, f.store.Order(order.ID).Status)
	require.Len(t, statusEvents(f.store), 1)
	assert.Equal(t, r.EventOrderFailed, statusEvents(f.store)[0].EventType)
}

func TestHandleWebhookEvent_DuplicateDeliveryIsNoOp(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.pendingOrder()

	require.NoError(t, f.deliver(t, "evt_1", payment.EventPaymentSucceeded, order.ID))
	err := f.deliver(t, "evt_1", payment.EventPaymentSucceeded, order.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, f.store.Order(order.ID).Status)
	assert.Len(t, statusEvents(f.store), 1)
	assert.Equal(t, 1, f.cache.DeleteCount())
	assert.Len(t, f.journal.Recorded(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.Webhooks.WithLabelValues(string(events.OutcomeDuplicate))))
}

func TestHandleWebhookEvent_NoTransitionOutOfTerminal(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.pendingOrder()

	require.NoError(t, f.deliver(t, "evt_fail", payment.EventPaymentFailed, order.ID))
	err := f.deliver(t, "evt_paid", payment.EventPaymentSucceeded, order.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, f.store.Order(order.ID).Status)
	assert.Len(t, statusEvents(f.store), 1)
	recorded := f.journal.Recorded()
	require.Len(t, recorded, 2)
	assert.Equal(t, events.OutcomeOutOfOrder, recorded[1].Outcome)
}

func TestHandleWebhookEvent_IgnoredTypeDoesNoLookup(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.pendingOrder()

	err := f.deliver(t, "evt_x", "customer.created", order.ID)

	require.NoError(t, err)
	assert.Zero(t, f.store.TxCount)
	assert.Zero(t, f.store.StatusLookups)
	assert.Equal(t, domain.PaymentStatusPending, f.store.Order(order.ID).Status)
	assert.Empty(t, f.journal.Recorded())
}

func TestHandleWebhookEvent_InvalidSignatureRejectedBeforeLookup(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.pendingOrder()
	body, _ := json.Marshal(payment.FakeEvent{ID: "evt_1", Type: payment.EventPaymentSucceeded, OrderID: order.ID})
	forged := newFakeGateway(t, "attacker").Sign(body, time.Now())

	err := f.svc.HandleWebhookEvent(context.Background(), forged, body)

	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Zero(t, f.store.TxCount)
	assert.Equal(t, domain.PaymentStatusPending, f.store.Order(order.ID).Status)
}

func TestHandleWebhookEvent_MissingSignature(t *testing.T) {
	f := newWebhookFixture(t)

	err := f.svc.HandleWebhookEvent(context.Background(), http.Header{}, []byte(`{}`))

	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestHandleWebhookEvent_UnknownOrder(t *testing.T) {
	f := newWebhookFixture(t)

	err := f.deliver(t, "evt_1", payment.EventPaymentSucceeded, 404)

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Empty(t, f.store.OutboxEvents())
	assert.Empty(t, f.journal.Recorded())
}

func TestHandleWebhookEvent_JournalFailureStillAcknowledges(t *testing.T) {
	f := newWebhookFixture(t)
	f.journal.RecordErr = errors.New("mongo down")
	order := f.pendingOrder()

	err := f.deliver(t, "evt_1", payment.EventPaymentSucceeded, order.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, f.store.Order(order.ID).Status)
}

func TestHandleWebhookEvent_OutboxFailureLeavesOrderPending(t *testing.T) {
	f := newWebhookFixture(t)
	f.store.OutboxErr = errors.New("outbox unavailable")
	order := f.pendingOrder()

	err := f.deliver(t, "evt_1", payment.EventPaymentSucceeded, order.ID)

	assert.Error(t, err)
	assert.Equal(t, domain.PaymentStatusPending, f.store.Order(order.ID).Status)
}

func TestHandleWebhookEvent_ConcurrentDeliveriesApplyOnce(t *testing.T) {
	f := newWebhookFixture(t)
	order := f.pendingOrder()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		eventType := payment.EventPaymentSucceeded
		if i%2 == 1 {
			eventType = payment.EventPaymentFailed
		}
		wg.Add(1)
		go func(eventType string) {
			defer wg.Done()
			assert.NoError(t, f.deliver(t, "evt_"+eventType, eventType, order.ID))
		}(eventType)
	}
	wg.Wait()

	applied := statusEvents(f.store)
	require.Len(t, applied, 1)
	final := f.store.Order(order.ID).Status
	assert.True(t, final.IsTerminal())
	if final == domain.PaymentStatusPaid {
		assert.Equal(t, r.EventOrderPaid, applied[0].EventType)
	} else {
		assert.Equal(t, r.EventOrderFailed, applied[0].EventType)
	}
	assert.Equal(t, 1, f.cache.DeleteCount())
}
