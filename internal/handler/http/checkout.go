package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// CheckoutStateResponse reports the checkout phase.
type CheckoutStateResponse struct {
	State service.CheckoutState `json:"state"`
}

// PlacedOrderResponse is a placed order and when the visitor moves on to
// the orders page.
type PlacedOrderResponse struct {
	Order        *domain.Order `json:"order"`
	RedirectInMS int64         `json:"redirect_in_ms"`
}

// State handles GET /api/v1/checkout
func (h *CheckoutHandler) State(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, CheckoutStateResponse{State: h.service.State()})
}

// Begin handles POST /api/v1/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	conf, err := h.service.Begin(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, conf)
}

// Abort handles DELETE /api/v1/checkout
func (h *CheckoutHandler) Abort(w http.ResponseWriter, r *http.Request) {
	h.service.Abort()
	w.WriteHeader(http.StatusNoContent)
}

// Confirm handles POST /api/v1/checkout/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Confirm(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, PlacedOrderResponse{
		Order:        res.Order,
		RedirectInMS: res.RedirectIn.Milliseconds(),
	})
}
