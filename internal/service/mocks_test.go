package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_store/internal/cache"
	"github.com/fjod/go_store/internal/catalog"
	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/events"
	"github.com/fjod/go_store/internal/payment"
	r "github.com/fjod/go_store/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newFakeGateway(t testing.TB, secret string) *payment.FakeGateway {
	t.Helper()
	g, err := payment.NewFakeGateway("http://pay.local", secret)
	require.NoError(t, err)
	return g
}

// memState is the data behind MockStore. It is only touched with MockStore.mu held.
type memState struct {
	carts       map[uuid.UUID]*domain.Cart
	orders      map[int64]*domain.Order
	outbox      []*r.OutboxEvent
	nextOrderID int64
}

func (s *memState) clone() *memState {
	c := &memState{
		carts:       make(map[uuid.UUID]*domain.Cart, len(s.carts)),
		orders:      make(map[int64]*domain.Order, len(s.orders)),
		outbox:      append([]*r.OutboxEvent(nil), s.outbox...),
		nextOrderID: s.nextOrderID,
	}
	for id, cart := range s.carts {
		c.carts[id] = copyCart(cart)
	}
	for id, order := range s.orders {
		c.orders[id] = copyOrder(order)
	}
	return c
}

func copyCart(cart *domain.Cart) *domain.Cart {
	cp := *cart
	cp.Items = append([]domain.LineItem{}, cart.Items...)
	return &cp
}

func copyOrder(order *domain.Order) *domain.Order {
	cp := *order
	cp.Items = append([]domain.OrderItem{}, order.Items...)
	return &cp
}

// MockStore implements r.RepoInterface in memory. Transactions are
// serialized and roll back to a snapshot when fn fails.
type MockStore struct {
	mu    sync.Mutex
	state *memState

	ClearErr  error
	OutboxErr error

	TxCount       int
	StatusLookups int
}

func NewMockStore() *MockStore {
	return &MockStore{state: &memState{
		carts:  map[uuid.UUID]*domain.Cart{},
		orders: map[int64]*domain.Order{},
	}}
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) RunMigrations(*r.Credentials) error {
	return nil
}

func (m *MockStore) WithTx(_ context.Context, fn func(tx r.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TxCount++
	snapshot := m.state.clone()
	if err := fn(&memTx{store: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *MockStore) Carts() r.CartRepository { return &memCarts{store: m} }
func (m *MockStore) Orders() r.OrderRepository { return &memOrders{store: m} }
func (m *MockStore) Outbox() r.OutboxRepository { return &memOutbox{store: m} }

func (m *MockStore) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// test helpers

func (m *MockStore) PutCart(cart *domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.carts[cart.ID] = copyCart(cart)
}

func (m *MockStore) PutOrder(order *domain.Order) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextOrderID++
	order.ID = m.state.nextOrderID
	m.state.orders[order.ID] = copyOrder(order)
	return order
}

func (m *MockStore) Cart(id uuid.UUID) *domain.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart, ok := m.state.carts[id]; ok {
		return copyCart(cart)
	}
	return nil
}

func (m *MockStore) Order(id int64) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.state.orders[id]; ok {
		return copyOrder(order)
	}
	return nil
}

func (m *MockStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *MockStore) OutboxEvents() []*r.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*r.OutboxEvent(nil), m.state.outbox...)
}

type memTx struct {
	store *MockStore
}

func (t *memTx) Carts() r.CartRepository { return &memCarts{store: t.store, inTx: true} }
func (t *memTx) Orders() r.OrderRepository { return &memOrders{store: t.store, inTx: true} }
func (t *memTx) Outbox() r.OutboxRepository { return &memOutbox{store: t.store, inTx: true} }

type memCarts struct {
	store *MockStore
	inTx  bool
}

func (c *memCarts) Create(_ context.Context, cart *domain.Cart) error {
	defer c.store.lock(c.inTx)()
	if _, ok := c.store.state.carts[cart.ID]; ok {
		return r.ErrDuplicateCart
	}
	c.store.state.carts[cart.ID] = copyCart(cart)
	return nil
}

func (c *memCarts) GetWithItems(_ context.Context, id uuid.UUID) (*domain.Cart, error) {
	defer c.store.lock(c.inTx)()
	cart, ok := c.store.state.carts[id]
	if !ok {
		return nil, r.ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (c *memCarts) GetWithItemsForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return c.GetWithItems(ctx, id)
}

func (c *memCarts) SaveItem(_ context.Context, cartID uuid.UUID, item domain.LineItem) error {
	defer c.store.lock(c.inTx)()
	cart, ok := c.store.state.carts[cartID]
	if !ok {
		return r.ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity = item.Quantity
			return nil
		}
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (c *memCarts) Clear(_ context.Context, cartID uuid.UUID) error {
	defer c.store.lock(c.inTx)()
	if c.store.ClearErr != nil {
		return c.store.ClearErr
	}
	if cart, ok := c.store.state.carts[cartID]; ok {
		cart.Clear()
	}
	return nil
}

type memOrders struct {
	store *MockStore
	inTx  bool
}

func (o *memOrders) Create(_ context.Context, order *domain.Order) error {
	defer o.store.lock(o.inTx)()
	o.store.state.nextOrderID++
	order.ID = o.store.state.nextOrderID
	o.store.state.orders[order.ID] = copyOrder(order)
	return nil
}

func (o *memOrders) GetWithItems(_ context.Context, id int64) (*domain.Order, error) {
	defer o.store.lock(o.inTx)()
	order, ok := o.store.state.orders[id]
	if !ok {
		return nil, r.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (o *memOrders) GetStatus(_ context.Context, id int64) (domain.PaymentStatus, error) {
	defer o.store.lock(o.inTx)()
	o.store.StatusLookups++
	order, ok := o.store.state.orders[id]
	if !ok {
		return "", r.ErrOrderNotFound
	}
	return order.Status, nil
}

func (o *memOrders) ListByCustomer(_ context.Context, customer domain.CustomerID) ([]*domain.Order, error) {
	defer o.store.lock(o.inTx)()
	orders := []*domain.Order{}
	for _, order := range o.store.state.orders {
		if order.IsPlacedBy(customer) {
			orders = append(orders, copyOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (o *memOrders) UpdateStatusIfPending(_ context.Context, id int64, status domain.PaymentStatus) (bool, error) {
	defer o.store.lock(o.inTx)()
	order, ok := o.store.state.orders[id]
	if !ok || order.Status != domain.PaymentStatusPending {
		return false, nil
	}
	order.Status = status
	return true, nil
}

func (o *memOrders) Delete(_ context.Context, id int64) error {
	defer o.store.lock(o.inTx)()
	if _, ok := o.store.state.orders[id]; !ok {
		return r.ErrOrderNotFound
	}
	delete(o.store.state.orders, id)
	return nil
}

type memOutbox struct {
	store *MockStore
	inTx  bool
}

func (b *memOutbox) Insert(_ context.Context, event *r.OutboxEvent) error {
	defer b.store.lock(b.inTx)()
	if b.store.OutboxErr != nil {
		return b.store.OutboxErr
	}
	event.CreatedAt = time.Now()
	b.store.state.outbox = append(b.store.state.outbox, event)
	return nil
}

func (b *memOutbox) GetUnprocessedEvents(_ context.Context, limit int) ([]*r.OutboxEvent, error) {
	defer b.store.lock(b.inTx)()
	var events []*r.OutboxEvent
	for _, e := range b.store.state.outbox {
		if e.ProcessedAt == nil && len(events) < limit {
			events = append(events, e)
		}
	}
	return events, nil
}

func (b *memOutbox) MarkEventAsProcessed(_ context.Context, id uuid.UUID) error {
	defer b.store.lock(b.inTx)()
	now := time.Now()
	for _, e := range b.store.state.outbox {
		if e.ID == id {
			e.ProcessedAt = &now
		}
	}
	return nil
}

// MockCache implements cache.OrderCache.
type MockCache struct {
	mu      sync.Mutex
	orders  map[int64]*domain.Order
	GetErr  error
	Deletes []int64
}

func NewMockCache() *MockCache {
	return &MockCache{orders: map[int64]*domain.Order{}}
}

func (c *MockCache) Get(_ context.Context, orderID int64) (*domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	order, ok := c.orders[orderID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return copyOrder(order), nil
}

func (c *MockCache) Set(_ context.Context, order *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[order.ID] = copyOrder(order)
	return nil
}

func (c *MockCache) Delete(_ context.Context, orderID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deletes = append(c.Deletes, orderID)
	delete(c.orders, orderID)
	return nil
}

func (c *MockCache) Has(orderID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.orders[orderID]
	return ok
}

func (c *MockCache) DeleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Deletes)
}

// MockJournal implements events.Journal with the same event id uniqueness.
type MockJournal struct {
	mu        sync.Mutex
	Events    []*events.PaymentEvent
	RecordErr error
}

func (j *MockJournal) Record(_ context.Context, event *events.PaymentEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.RecordErr != nil {
		return j.RecordErr
	}
	for _, e := range j.Events {
		if e.EventID == event.EventID {
			return events.ErrDuplicateEvent
		}
	}
	j.Events = append(j.Events, event)
	return nil
}

func (j *MockJournal) FindByOrder(_ context.Context, orderID int64) ([]*events.PaymentEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*events.PaymentEvent
	for _, e := range j.Events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *MockJournal) Recorded() []*events.PaymentEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*events.PaymentEvent(nil), j.Events...)
}

// MockCatalog implements ProductCatalog.
type MockCatalog struct {
	Products map[int64]*domain.Product
}

func (c *MockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := c.Products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}
