package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_bookstore/internal/backend"
	cart "github.com/fjod/go_bookstore/internal/cart/domain"
	cartservice "github.com/fjod/go_bookstore/internal/cart/service"
	"github.com/fjod/go_bookstore/internal/cart/storage"
	d "github.com/fjod/go_bookstore/internal/checkout/domain"
	r "github.com/fjod/go_bookstore/internal/checkout/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// MockBackend implements Backend for testing
type MockBackend struct {
	mu sync.Mutex

	SignedIn    bool
	ProfileResp *backend.Profile
	ProfileErr  error
	OrderResp   *backend.CreatedOrder
	OrderErr    error
	PaymentResp *backend.PaymentSession
	PaymentErr  error
	CancelErr   error

	// Existing is what Order returns for any id
	Existing    *backend.Order
	ExistingErr error

	// OrderStarted is signalled and OrderRelease awaited inside CreateOrder when set
	OrderStarted chan struct{}
	OrderRelease chan struct{}

	Calls           int
	OrderRequests   []backend.OrderRequest
	IdempotencyKeys []string
	PaymentRequests []backend.PaymentRequest
	Cancelled       []int64
}

func (m *MockBackend) Authenticated(context.Context) bool {
	return m.SignedIn
}

func (m *MockBackend) Profile(context.Context) (*backend.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.ProfileResp, m.ProfileErr
}

func (m *MockBackend) CreateOrder(_ context.Context, req backend.OrderRequest, key string) (*backend.CreatedOrder, error) {
	if m.OrderStarted != nil {
		m.OrderStarted <- struct{}{}
		<-m.OrderRelease
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.OrderRequests = append(m.OrderRequests, req)
	m.IdempotencyKeys = append(m.IdempotencyKeys, key)
	if m.OrderErr != nil {
		return nil, m.OrderErr
	}
	return m.OrderResp, nil
}

func (m *MockBackend) ProcessPayment(_ context.Context, req backend.PaymentRequest) (*backend.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.PaymentRequests = append(m.PaymentRequests, req)
	if m.PaymentErr != nil {
		return nil, m.PaymentErr
	}
	return m.PaymentResp, nil
}

func (m *MockBackend) CancelOrder(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Cancelled = append(m.Cancelled, orderID)
	return m.CancelErr
}

func (m *MockBackend) Order(_ context.Context, orderID int64) (*backend.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.ExistingErr != nil {
		return nil, m.ExistingErr
	}
	if m.Existing == nil {
		return nil, backend.ErrNotFound
	}
	order := *m.Existing
	order.ID = orderID
	return &order, nil
}

// MockPublisher captures published events
type MockPublisher struct {
	mu     sync.Mutex
	Events []d.Event
	Err    error
}

func (m *MockPublisher) Publish(_ context.Context, event d.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

func (m *MockPublisher) Types() []d.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]d.EventType, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.Type)
	}
	return types
}

type testEnv struct {
	svc       *CheckoutServiceImpl
	carts     *cartservice.CartService
	repo      *r.MemoryRepository
	publisher *MockPublisher
}

// newTestCheckoutService creates a fully wired CheckoutService for testing
func newTestCheckoutService(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		carts:     cartservice.NewCartService(storage.NewMemory(), nil),
		repo:      r.NewMemoryRepository(),
		publisher: &MockPublisher{},
	}
	env.svc = NewCheckoutService(env.repo, env.carts, env.publisher, nil, Options{
		ShippingFee: decimal.Zero,
		Timeout:     5 * time.Second,
		CartKey:     cartservice.SessionKey,
	})
	return env
}

func (e *testEnv) fillCart(t *testing.T, sessionID string, items ...cart.LineItem) {
	t.Helper()
	for _, item := range items {
		_, err := e.carts.AddToCart(context.Background(), cartservice.SessionKey(sessionID), item)
		require.NoError(t, err)
	}
}

func (e *testEnv) cartOf(sessionID string) cart.Cart {
	return e.carts.GetCart(context.Background(), cartservice.SessionKey(sessionID))
}

func bookA() cart.LineItem {
	return cart.LineItem{ID: 1, Name: "A", Price: decimal.NewFromInt(89000), Image: "/a.jpg", Qty: 1}
}

func bookB() cart.LineItem {
	return cart.LineItem{ID: 2, Name: "B", Price: decimal.NewFromInt(120000), Image: "/b.jpg", Qty: 2}
}

func codForm() Form {
	return Form{Phone: "0900000000", ShippingAddress: "12 Book Street", PaymentMethod: d.PaymentMethodCOD}
}

func electronicForm() Form {
	f := codForm()
	f.PaymentMethod = d.PaymentMethodElectronic
	return f
}
