package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/pagination"
)

// DefaultOrderLimit is the page size used when none is given.
const DefaultOrderLimit = 10

// OrderGateway calls the order service on behalf of the signed-in visitor.
// Every call fails fast with Unauthorized when there is no credential.
type OrderGateway struct {
	remote remote
}

// NewOrderGateway creates an order gateway rooted at baseURL, e.g.
// http://localhost:3000/orders.
func NewOrderGateway(baseURL string, client httpclient.HTTPDoer, auth Authenticator, logger *slog.Logger) *OrderGateway {
	return &OrderGateway{remote: remote{
		service: "order service",
		baseURL: baseURL,
		client:  client,
		auth:    auth,
		logger:  logger,
	}}
}

// ListOrders returns one page of the visitor's orders.
func (g *OrderGateway) ListOrders(ctx context.Context, params pagination.Params) (pagination.Page[domain.Order], error) {
	var out envelope[list[wireOrder]]
	op := operation{name: "list", fallback: "failed to fetch orders", requiresAuth: true}
	if err := g.remote.call(ctx, op, http.MethodGet, "/list?"+params.Query().Encode(), "", nil, &out); err != nil {
		return pagination.Page[domain.Order]{}, err
	}

	orders := make([]domain.Order, 0, len(out.Data.Data))
	for _, o := range out.Data.Data {
		orders = append(orders, o.toDomain())
	}
	return pagination.NewPage(orders, out.Data.Total, params), nil
}

// GetOrder returns one order.
func (g *OrderGateway) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	op := operation{
		name: "detail", resource: "order", id: id,
		fallback:     "failed to fetch order",
		forbidden:    "You can only access your own orders.",
		requiresAuth: true,
	}
	return g.orderCall(ctx, op, http.MethodGet, "/detail/"+url.PathEscape(id), nil)
}

// CreateOrder submits an order. The request carries product references and
// quantities only; the returned order holds the server-computed totals.
func (g *OrderGateway) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	if problems := domain.ValidateOrderItems(req.Items); len(problems) > 0 {
		return nil, apperrors.InvalidInput(problems[0])
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("marshal order: %w", err))
	}
	op := operation{name: "create", fallback: "failed to create order", requiresAuth: true}
	return g.orderCall(ctx, op, http.MethodPost, "/create", body)
}

// CancelOrder asks the service to cancel a pending order. It returns the
// updated order, or nil when the service only acknowledges the change.
func (g *OrderGateway) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	op := operation{
		name: "cancel", resource: "order", id: id,
		fallback:     "failed to cancel order",
		forbidden:    "You can only cancel your own orders.",
		transition:   true,
		allowEmpty:   true,
		requiresAuth: true,
	}
	return g.orderCall(ctx, op, http.MethodPut, "/cancel/"+url.PathEscape(id), nil)
}

// DeleteOrder asks the service to delete a cancelled order.
func (g *OrderGateway) DeleteOrder(ctx context.Context, id string) error {
	op := operation{
		name: "delete", resource: "order", id: id,
		fallback:     "failed to delete order",
		forbidden:    "You can only delete your own orders.",
		transition:   true,
		requiresAuth: true,
	}
	return g.remote.call(ctx, op, http.MethodDelete, "/delete/"+url.PathEscape(id), "", nil, nil)
}

// Ping checks the order service answers.
func (g *OrderGateway) Ping(ctx context.Context) error {
	return g.remote.probe(ctx, "/list")
}

func (g *OrderGateway) orderCall(ctx context.Context, op operation, method, path string, body []byte) (*domain.Order, error) {
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	var out envelope[*wireOrder]
	if err := g.remote.call(ctx, op, method, path, contentType, body, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		if op.allowEmpty {
			return nil, nil
		}
		return nil, apperrors.ServiceError("order service returned no order")
	}
	o := out.Data.toDomain()
	return &o, nil
}
