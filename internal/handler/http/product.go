package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// maxUploadBytes bounds a product form including its image.
const maxUploadBytes = 10 << 20

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// ProductRequest is the JSON form of a product create/update request.
type ProductRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	IsActive    *bool           `json:"is_active"`
	Image       string          `json:"image"`
}

// --- Handlers ---

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r, gateway.DefaultProductLimit)
	page, err := h.service.List(r.Context(), p.Page, p.Limit, r.URL.Query().Get("search"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// Get handles GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProductInput(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, p)
}

// Update handles PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProductInput(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeProductInput reads a product form sent either as multipart/form-data
// (the shape the product service itself accepts) or as JSON.
func decodeProductInput(w http.ResponseWriter, r *http.Request) (domain.ProductInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return decodeProductForm(w, r)
	}

	var req ProductRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return domain.ProductInput{}, apperrors.InvalidInput(fmt.Sprintf("malformed request body: %v", err))
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return domain.ProductInput{
		Name:        strings.TrimSpace(req.Name),
		Price:       req.Price,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Stock:       req.Stock,
		IsActive:    active,
		Image:       req.Image,
	}, nil
}

func decodeProductForm(w http.ResponseWriter, r *http.Request) (domain.ProductInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return domain.ProductInput{}, apperrors.InvalidInput(fmt.Sprintf("malformed form: %v", err))
	}

	in := domain.ProductInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Image:       r.FormValue("image"),
		IsActive:    true,
	}

	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return in, apperrors.InvalidInput(fmt.Sprintf("price %q is not a number", raw))
		}
		in.Price = price
	}
	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return in, apperrors.InvalidInput(fmt.Sprintf("stock %q must be a whole number", raw))
		}
		in.Stock = stock
	}
	if raw := strings.TrimSpace(r.FormValue("isActive")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return in, apperrors.InvalidInput(fmt.Sprintf("isActive %q must be true or false", raw))
		}
		in.IsActive = active
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return in, apperrors.InvalidInput(fmt.Sprintf("image: %v", err))
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return in, apperrors.InvalidInput(fmt.Sprintf("image: %v", err))
		}
		in.Image = ""
		in.ImageFile = &domain.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return in, nil
}
