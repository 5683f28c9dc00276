package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	cart    *service.CartService
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(cart *service.CartService, catalog *service.CatalogService, logger *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, catalog: catalog, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
// Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string      `json:"product_id" validate:"required"`
	Quantity  json.Number `json:"quantity"`
}

// UpdateQuantityRequest is the JSON request body for setting a line's
// quantity. Zero or below removes the line.
type UpdateQuantityRequest struct {
	Quantity json.Number `json:"quantity"`
}

// --- Response DTOs ---

// CartResponse is the cart with its derived totals.
type CartResponse struct {
	Items       []LineItemResponse `json:"items"`
	LineCount   int                `json:"line_count"`
	ItemCount   int                `json:"item_count"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
}

// LineItemResponse is one cart line with its subtotal.
type LineItemResponse struct {
	domain.LineItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

// BadgeResponse is the header badge: the item count only.
type BadgeResponse struct {
	ItemCount int `json:"item_count"`
}

func toCartResponse(c domain.Cart) CartResponse {
	items := make([]LineItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, LineItemResponse{LineItem: it, Subtotal: it.Subtotal()})
	}
	return CartResponse{
		Items:       items,
		LineCount:   c.LineCount(),
		ItemCount:   c.ItemCount(),
		TotalAmount: c.TotalAmount(),
	}
}

// --- Handlers ---

// Get handles GET /api/v1/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}

// Badge handles GET /api/v1/cart/badge
func (h *CartHandler) Badge(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, BadgeResponse{ItemCount: h.cart.ItemCount()})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	quantity := 1
	if req.Quantity != "" {
		q, err := domain.ParseQuantity(req.Quantity.String())
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
			return
		}
		if q < 1 {
			httputil.WriteError(w, r, apperrors.InvalidInput("quantity must be at least 1"), h.logger)
			return
		}
		quantity = q
	}

	cart, err := h.catalog.AddToCart(r.Context(), req.ProductID, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// UpdateQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if req.Quantity == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("quantity is required"), h.logger)
		return
	}
	q, err := domain.ParseQuantity(req.Quantity.String())
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	h.cart.UpdateQuantity(chi.URLParam(r, "productId"), q)
	httputil.WriteData(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.cart.RemoveItem(chi.URLParam(r, "productId"))
	httputil.WriteData(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	httputil.WriteData(w, http.StatusOK, toCartResponse(h.cart.Snapshot()))
}
