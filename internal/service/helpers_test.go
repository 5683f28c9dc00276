package service

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func product(id, price string) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
}

// --- Fake Auth ---

type fakeAuth struct {
	mu   sync.Mutex
	user *domain.User
}

func signedInAs(id string) *fakeAuth {
	return &fakeAuth{user: &domain.User{ID: id, Email: id + "@example.com"}}
}

func (f *fakeAuth) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user != nil
}

func (f *fakeAuth) CurrentUser() (*domain.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return nil, false
	}
	u := *f.user
	return &u, true
}

func (f *fakeAuth) Headers() map[string]string {
	if !f.IsAuthenticated() {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer test"}
}

func (f *fakeAuth) signOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
}

// --- Recording Navigator ---

type recordingNav struct {
	mu    sync.Mutex
	pages []Page
}

func (n *recordingNav) Navigate(page Page) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pages = append(n.pages, page)
}

func (n *recordingNav) visited() []Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Page(nil), n.pages...)
}

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCartUpdated(ctx context.Context, userID string, cart domain.Cart) error {
	return m.Called(ctx, userID, cart).Error(0)
}

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockPublisher) PublishOrderCanceled(ctx context.Context, userID, orderID string) error {
	return m.Called(ctx, userID, orderID).Error(0)
}

func (m *mockPublisher) PublishOrderDeleted(ctx context.Context, userID, orderID string) error {
	return m.Called(ctx, userID, orderID).Error(0)
}

// --- Mock Order Gateway ---

type mockOrderGateway struct {
	mock.Mock
}

func (m *mockOrderGateway) ListOrders(ctx context.Context, params pagination.Params) (pagination.Page[domain.Order], error) {
	args := m.Called(ctx, params)
	return args.Get(0).(pagination.Page[domain.Order]), args.Error(1)
}

func (m *mockOrderGateway) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderGateway) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderGateway) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderGateway) DeleteOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
