package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type checkoutFixture struct {
	svc    *CheckoutService
	cart   *CartService
	orders *mockOrderGateway
	auth   *fakeAuth
	nav    *recordingNav
	pub    *mockPublisher
}

func newCheckoutFixture(t *testing.T, delay time.Duration) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		cart:   NewCartService(newTestLogger()),
		orders: new(mockOrderGateway),
		auth:   signedInAs("u-1"),
		nav:    &recordingNav{},
		pub:    new(mockPublisher),
	}
	f.svc = NewCheckoutService(f.cart, f.orders, f.auth, f.nav, f.pub, newTestLogger(), delay)
	t.Cleanup(f.svc.Stop)
	return f
}

func placedOrder() *domain.Order {
	return &domain.Order{
		ID:          "o-1",
		User:        domain.OrderUser{ID: "u-1"},
		TotalAmount: decimal.RequireFromString("25"),
		Status:      domain.StatusPending,
	}
}

func TestCheckout_BeginRequiresLogin(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)
	f.auth.signOut()

	conf, err := f.svc.Begin(context.Background())
	require.Error(t, err)
	assert.Nil(t, conf)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, []Page{PageLogin}, f.nav.visited())
	assert.Equal(t, CheckoutIdle, f.svc.State())
}

func TestCheckout_BeginRejectsEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)

	_, err := f.svc.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "your cart is empty")
	assert.Empty(t, f.nav.visited())
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCheckout_LoginIsCheckedBeforeEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.auth.signOut()

	_, err := f.svc.Begin(context.Background())
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestCheckout_BeginRejectsMissingProductReference(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)
	f.cart.AddItem(product("", "5"), 1)

	_, err := f.svc.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "item 2: product reference is required")
}

func TestCheckout_BeginReturnsEstimate(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "12.50"), 2)
	f.cart.AddItem(product("p-2", "1.25"), 1)

	conf, err := f.svc.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, conf.LineCount)
	assert.Equal(t, 3, conf.ItemCount)
	assert.Equal(t, "26.25", conf.EstimatedTotal.StringFixed(2))
	assert.True(t, conf.Estimated)
	assert.Equal(t, CheckoutConfirming, f.svc.State())
}

func TestCheckout_Abort(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "1"), 1)

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)
	f.svc.Abort()

	assert.Equal(t, CheckoutIdle, f.svc.State())
	assert.Equal(t, 1, f.cart.ItemCount())

	_, err = f.svc.Confirm(context.Background())
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestCheckout_ConfirmWithoutBegin(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "1"), 1)

	_, err := f.svc.Confirm(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCheckout_ConfirmSuccess(t *testing.T) {
	f := newCheckoutFixture(t, 20*time.Millisecond)
	f.cart.AddItem(product("p-1", "10"), 2)
	f.cart.AddItem(product("p-2", "5"), 1)

	want := domain.CreateOrderRequest{
		User: "u-1",
		Items: []domain.CreateOrderItem{
			{Product: "p-1", Quantity: 2},
			{Product: "p-2", Quantity: 1},
		},
	}
	f.orders.On("CreateOrder", mock.Anything, want).Return(placedOrder(), nil).Once()
	f.pub.On("PublishOrderPlaced", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Once()

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)

	res, err := f.svc.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "o-1", res.Order.ID)
	assert.Equal(t, 20*time.Millisecond, res.RedirectIn)

	// The server total wins over the client estimate.
	assert.True(t, decimal.NewFromInt(25).Equal(res.Order.TotalAmount))

	assert.Empty(t, f.cart.Items())
	assert.Equal(t, CheckoutIdle, f.svc.State())
	assert.Empty(t, f.nav.visited())

	require.Eventually(t, func() bool {
		return len(f.nav.visited()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Page{PageOrders}, f.nav.visited())

	f.orders.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func TestCheckout_ConfirmClearsCartOnceWithOneNotification(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)
	calls := 0
	f.cart.Subscribe(func() { calls++ })

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Return(placedOrder(), nil)
	f.pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestCheckout_ConfirmFailureLeavesCartUntouched(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 2)
	before := f.cart.Items()

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, apperrors.ServiceError("Insufficient stock for Product p-1")).Once()

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)

	res, err := f.svc.Confirm(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrService)
	assert.Contains(t, err.Error(), "Insufficient stock")

	assert.Equal(t, before, f.cart.Items())
	assert.Equal(t, CheckoutIdle, f.svc.State())
	assert.Empty(t, f.nav.visited())
	f.pub.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything, mock.Anything)
}

func TestCheckout_ConfirmUnauthorizedNavigatesToLogin(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, apperrors.Unauthorized("token expired")).Once()

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background())

	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, []Page{PageLogin}, f.nav.visited())
	assert.Equal(t, 1, f.cart.ItemCount())
}

func TestCheckout_ConfirmRechecksLiveCart(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)
	f.cart.Clear()

	_, err = f.svc.Confirm(context.Background())
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Equal(t, CheckoutIdle, f.svc.State())
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCheckout_RetryAfterFailure(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, apperrors.ServiceUnavailable("order service is unreachable")).Once()
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).
		Return(placedOrder(), nil).Once()
	f.pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background())
	require.Error(t, err)

	_, err = f.svc.Begin(context.Background())
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background())
	require.NoError(t, err)

	f.orders.AssertNumberOfCalls(t, "CreateOrder", 2)
}

func TestCheckout_DuplicateConfirmIsRejected(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)

	release := make(chan struct{})
	entered := make(chan struct{})
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(placedOrder(), nil).Once()
	f.pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.Confirm(context.Background())
		assert.NoError(t, err)
	}()

	<-entered
	assert.Equal(t, CheckoutSubmitting, f.svc.State())

	_, err = f.svc.Confirm(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = f.svc.Begin(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	close(release)
	wg.Wait()
	f.orders.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestCheckout_SubmissionSurvivesCallerCancellation(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	f.orders.On("CreateOrder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(placedOrder(), nil).Once()
	f.pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Begin(ctx)
	require.NoError(t, err)
	res, err := f.svc.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "o-1", res.Order.ID)
	assert.Empty(t, f.cart.Items())
}

func TestCheckout_PublishFailureIsNotFatal(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	f.cart.AddItem(product("p-1", "10"), 1)

	f.orders.On("CreateOrder", mock.Anything, mock.Anything).Return(placedOrder(), nil)
	f.pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)
	res, err := f.svc.Confirm(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Order)
}

// expiringAuth reports a signed-in user for the first n lookups only.
type expiringAuth struct {
	mu    sync.Mutex
	n     int
	calls int
}

func (a *expiringAuth) IsAuthenticated() bool { return true }

func (a *expiringAuth) CurrentUser() (*domain.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.calls > a.n {
		return nil, false
	}
	return &domain.User{ID: "u-1"}, true
}

func (a *expiringAuth) Headers() map[string]string { return map[string]string{} }

func TestCheckout_ConfirmUsesUserFromPrecheck(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	auth := &expiringAuth{n: 2}
	f.svc = NewCheckoutService(f.cart, f.orders, auth, f.nav, f.pub, newTestLogger(), time.Hour)
	t.Cleanup(f.svc.Stop)
	f.cart.AddItem(product("p-1", "10"), 1)

	want := domain.CreateOrderRequest{
		User:  "u-1",
		Items: []domain.CreateOrderItem{{Product: "p-1", Quantity: 1}},
	}
	f.orders.On("CreateOrder", mock.Anything, want).Return(placedOrder(), nil).Once()
	f.pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)

	var res *CheckoutResult
	require.NotPanics(t, func() {
		res, err = f.svc.Confirm(context.Background())
	})
	require.NoError(t, err)
	assert.Equal(t, "o-1", res.Order.ID)
	assert.Equal(t, 2, auth.calls)
	f.orders.AssertExpectations(t)
}

func TestCheckout_ConfirmAfterSessionExpiredNavigatesToLogin(t *testing.T) {
	f := newCheckoutFixture(t, time.Hour)
	auth := &expiringAuth{n: 1}
	f.svc = NewCheckoutService(f.cart, f.orders, auth, f.nav, f.pub, newTestLogger(), time.Hour)
	t.Cleanup(f.svc.Stop)
	f.cart.AddItem(product("p-1", "10"), 1)

	_, err := f.svc.Begin(context.Background())
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, err = f.svc.Confirm(context.Background())
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, []Page{PageLogin}, f.nav.visited())
	assert.Equal(t, 1, f.cart.ItemCount())
	assert.Equal(t, CheckoutIdle, f.svc.State())
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}
