package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// OrderResponse is an order with the display hints the orders page needs.
type OrderResponse struct {
	*domain.Order
	Summary   domain.OrderSummary `json:"summary"`
	CanCancel bool                `json:"can_cancel"`
	CanDelete bool                `json:"can_delete"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		Order:     o,
		Summary:   o.Summary(),
		CanCancel: domain.CanCancel(o),
		CanDelete: domain.CanDelete(o),
	}
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r, gateway.DefaultOrderLimit)
	page, err := h.service.List(r.Context(), p.Page, p.Limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	orders := make([]OrderResponse, 0, len(page.Data))
	for i := range page.Data {
		orders = append(orders, toOrderResponse(&page.Data[i]))
	}
	httputil.WriteData(w, http.StatusOK, pagination.Page[OrderResponse]{
		Data:       orders,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	})
}

// Get handles GET /api/v1/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toOrderResponse(order))
}

// Cancel handles POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toOrderResponse(order))
}

// Delete handles DELETE /api/v1/orders/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
