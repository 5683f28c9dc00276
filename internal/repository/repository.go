package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// OrderCache is a short-lived cache of order details, scoped by the user the
// order was fetched for.
type OrderCache interface {
	// Get returns a cached order or a NotFound error on a miss.
	Get(ctx context.Context, userID, orderID string) (*domain.Order, error)

	// Set stores an order for the user, replacing any cached copy.
	Set(ctx context.Context, userID string, order *domain.Order) error

	// Invalidate drops the cached copy of an order.
	Invalidate(ctx context.Context, userID, orderID string) error
}
