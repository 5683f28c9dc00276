package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderGateway is the remote order service.
type OrderGateway interface {
	ListOrders(ctx context.Context, params pagination.Params) (pagination.Page[domain.Order], error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	CancelOrder(ctx context.Context, id string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// OrderService backs the orders page: listing, detail, and the cancel and
// delete actions guarded by the order state machine.
type OrderService struct {
	gateway  OrderGateway
	cache    repository.OrderCache
	auth     gateway.Authenticator
	producer event.Publisher
	logger   *slog.Logger

	acting atomic.Bool
}

// NewOrderService creates an order service. cache may be nil.
func NewOrderService(
	gw OrderGateway,
	cache repository.OrderCache,
	auth gateway.Authenticator,
	producer event.Publisher,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		gateway:  gw,
		cache:    cache,
		auth:     auth,
		producer: producer,
		logger:   logger,
	}
}

// List returns one page of the visitor's orders. Page defaults to 1 and
// limit to 10.
func (s *OrderService) List(ctx context.Context, page, limit int) (pagination.Page[domain.Order], error) {
	if _, ok := s.auth.CurrentUser(); !ok {
		return pagination.Page[domain.Order]{}, apperrors.Unauthorized(authRequiredMessage)
	}
	params := pagination.NewParams(page, limit, gateway.DefaultOrderLimit)
	result, err := s.gateway.ListOrders(ctx, params)
	if err != nil {
		return pagination.Page[domain.Order]{}, err
	}
	return result, nil
}

// Get returns one order, from the cache when a fresh copy is held.
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	user, ok := s.auth.CurrentUser()
	if !ok {
		return nil, apperrors.Unauthorized(authRequiredMessage)
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, user.ID, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "order cache read failed",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	order, err := s.gateway.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, user.ID, order); err != nil {
			s.logger.WarnContext(ctx, "order cache write failed",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return order, nil
}

// Cancel cancels a pending order and returns it as the service now reports
// it. Orders in any other status are refused without contacting the service.
func (s *OrderService) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	user, order, release, err := s.beginAction(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if !domain.CanCancel(order) {
		orderActions.WithLabelValues("cancel", "refused").Inc()
		return nil, apperrors.IllegalTransition("cancel", order.Status)
	}

	updated, err := s.gateway.CancelOrder(ctx, id)
	if err != nil {
		orderActions.WithLabelValues("cancel", "error").Inc()
		return nil, err
	}
	orderActions.WithLabelValues("cancel", "ok").Inc()
	s.invalidate(ctx, user.ID, id)

	if err := s.producer.PublishOrderCanceled(ctx, user.ID, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.canceled event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", id),
		slog.String("user_id", user.ID),
	)

	if updated == nil {
		updated, err = s.gateway.GetOrder(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "could not refresh cancelled order",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
			local := *order
			local.Status = domain.StatusCancelled
			return &local, nil
		}
	}
	return updated, nil
}

// Delete deletes a cancelled order. Orders in any other status are refused
// without contacting the service.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	user, order, release, err := s.beginAction(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if !domain.CanDelete(order) {
		orderActions.WithLabelValues("delete", "refused").Inc()
		return apperrors.IllegalTransition("delete", order.Status)
	}

	if err := s.gateway.DeleteOrder(ctx, id); err != nil {
		orderActions.WithLabelValues("delete", "error").Inc()
		return err
	}
	orderActions.WithLabelValues("delete", "ok").Inc()
	s.invalidate(ctx, user.ID, id)

	if err := s.producer.PublishOrderDeleted(ctx, user.ID, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.deleted event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order deleted",
		slog.String("order_id", id),
		slog.String("user_id", user.ID),
	)
	return nil
}

// beginAction claims the single action slot and fetches the order's current
// status from the service. The caller must call release.
func (s *OrderService) beginAction(ctx context.Context, id string) (*domain.User, *domain.Order, func(), error) {
	if id == "" {
		return nil, nil, nil, apperrors.InvalidInput("order id is required")
	}
	user, ok := s.auth.CurrentUser()
	if !ok {
		return nil, nil, nil, apperrors.Unauthorized(authRequiredMessage)
	}
	if !s.acting.CompareAndSwap(false, true) {
		return nil, nil, nil, apperrors.Conflict("another order action is in progress")
	}
	release := func() { s.acting.Store(false) }

	order, err := s.gateway.GetOrder(ctx, id)
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	return user, order, release, nil
}

func (s *OrderService) invalidate(ctx context.Context, userID, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID, orderID); err != nil {
		s.logger.WarnContext(ctx, "order cache invalidation failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}
