package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DefaultRedirectDelay is how long the success message shows before the
// visitor is sent to the orders page.
const DefaultRedirectDelay = 2 * time.Second

const authRequiredMessage = "Authentication required. Please login first."

// CheckoutState is the phase of the checkout flow.
type CheckoutState string

// Checkout states.
const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutConfirming CheckoutState = "confirming"
	CheckoutSubmitting CheckoutState = "submitting"
)

// CheckoutCart is the part of the cart aggregate checkout needs.
type CheckoutCart interface {
	Snapshot() domain.Cart
	Clear()
}

// OrderCreator submits orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
}

// Confirmation is what the visitor is asked to confirm. The total is the
// cart's own estimate; the order service computes the real one.
type Confirmation struct {
	LineCount      int             `json:"line_count"`
	ItemCount      int             `json:"item_count"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
	Estimated      bool            `json:"estimated"`
}

// CheckoutResult is a placed order and the delay before the visitor is
// taken to the orders page.
type CheckoutResult struct {
	Order      *domain.Order `json:"order"`
	RedirectIn time.Duration `json:"-"`
}

// CheckoutService turns the cart into an order: precondition checks,
// confirmation, submission, then clearing the cart and navigating away.
type CheckoutService struct {
	cart          CheckoutCart
	orders        OrderCreator
	auth          gateway.Authenticator
	nav           Navigator
	producer      event.Publisher
	logger        *slog.Logger
	redirectDelay time.Duration

	mu       sync.Mutex
	state    CheckoutState
	redirect *time.Timer
}

// NewCheckoutService creates a checkout service in the idle state.
func NewCheckoutService(
	cart CheckoutCart,
	orders OrderCreator,
	auth gateway.Authenticator,
	nav Navigator,
	producer event.Publisher,
	logger *slog.Logger,
	redirectDelay time.Duration,
) *CheckoutService {
	return &CheckoutService{
		cart:          cart,
		orders:        orders,
		auth:          auth,
		nav:           nav,
		producer:      producer,
		logger:        logger,
		redirectDelay: redirectDelay,
		state:         CheckoutIdle,
	}
}

// State returns the current checkout phase.
func (s *CheckoutService) State() CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin checks the visitor may check out and returns the confirmation to
// show. Checks run in order: signed in, cart not empty, every line has a
// product reference. An unauthenticated visitor is sent to the login page.
func (s *CheckoutService) Begin(ctx context.Context) (*Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == CheckoutSubmitting {
		return nil, apperrors.Conflict("an order is already being placed")
	}

	_, cart, err := s.precheck(ctx, "begin")
	if err != nil {
		s.state = CheckoutIdle
		return nil, err
	}

	s.state = CheckoutConfirming
	checkoutOutcomes.WithLabelValues("begin", "ok").Inc()
	return &Confirmation{
		LineCount:      cart.LineCount(),
		ItemCount:      cart.ItemCount(),
		EstimatedTotal: cart.TotalAmount(),
		Estimated:      true,
	}, nil
}

// Abort dismisses the confirmation. It is a no-op unless confirming.
func (s *CheckoutService) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == CheckoutConfirming {
		s.state = CheckoutIdle
	}
}

// Confirm submits the order. It is only valid after Begin. Once the request
// is sent it runs to completion even if ctx is cancelled. On success the cart
// is cleared and navigation to the orders page is scheduled; on failure the
// cart is left as it was and the flow returns to idle so the visitor can try
// again.
func (s *CheckoutService) Confirm(ctx context.Context) (*CheckoutResult, error) {
	s.mu.Lock()
	switch s.state {
	case CheckoutIdle:
		s.mu.Unlock()
		return nil, apperrors.InvalidInput("checkout has not been started")
	case CheckoutSubmitting:
		s.mu.Unlock()
		checkoutOutcomes.WithLabelValues("confirm", "duplicate").Inc()
		return nil, apperrors.Conflict("an order is already being placed")
	}

	user, cart, err := s.precheck(ctx, "confirm")
	if err != nil {
		s.state = CheckoutIdle
		s.mu.Unlock()
		return nil, err
	}
	s.state = CheckoutSubmitting
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = CheckoutIdle
		s.mu.Unlock()
	}()

	req := domain.CreateOrderRequest{User: user.ID, Items: cart.OrderItems()}
	order, err := s.orders.CreateOrder(context.WithoutCancel(ctx), req)
	if err != nil {
		checkoutOutcomes.WithLabelValues("confirm", outcome(err)).Inc()
		if apperrors.IsUnauthorized(err) {
			s.nav.Navigate(PageLogin)
		}
		s.logger.WarnContext(ctx, "order submission failed",
			slog.String("user_id", user.ID),
			slog.Int("line_count", cart.LineCount()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.cart.Clear()
	checkoutOutcomes.WithLabelValues("confirm", "ok").Inc()

	// Publish event; log but do not fail on error.
	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", user.ID),
		slog.String("total_amount", order.TotalAmount.String()),
	)

	s.scheduleRedirect()
	return &CheckoutResult{Order: order, RedirectIn: s.redirectDelay}, nil
}

// Stop cancels a pending redirect.
func (s *CheckoutService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redirect != nil {
		s.redirect.Stop()
		s.redirect = nil
	}
}

// precheck runs the checkout preconditions against the live cart and returns
// the signed-in user it checked. Callers hold s.mu.
func (s *CheckoutService) precheck(ctx context.Context, stage string) (*domain.User, domain.Cart, error) {
	user, ok := s.auth.CurrentUser()
	if !ok || user == nil || !s.auth.IsAuthenticated() {
		checkoutOutcomes.WithLabelValues(stage, "unauthorized").Inc()
		s.logger.InfoContext(ctx, "checkout requires login")
		s.nav.Navigate(PageLogin)
		return nil, domain.Cart{}, apperrors.Unauthorized(authRequiredMessage)
	}

	cart := s.cart.Snapshot()
	if problems := cart.CheckoutProblems(); len(problems) > 0 {
		checkoutOutcomes.WithLabelValues(stage, "invalid").Inc()
		return nil, domain.Cart{}, apperrors.InvalidInput(problems[0])
	}
	return user, cart, nil
}

func (s *CheckoutService) scheduleRedirect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redirect != nil {
		s.redirect.Stop()
	}
	s.redirect = time.AfterFunc(s.redirectDelay, func() {
		s.nav.Navigate(PageOrders)
	})
}

func outcome(err error) string {
	switch {
	case apperrors.IsUnauthorized(err):
		return "unauthorized"
	case apperrors.IsForbidden(err):
		return "forbidden"
	case apperrors.IsInvalidInput(err):
		return "invalid"
	default:
		return "error"
	}
}
