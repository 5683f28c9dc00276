package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// CatalogGateway is the remote product service.
type CatalogGateway interface {
	ListProducts(ctx context.Context, params pagination.Params, search string) (pagination.Page[domain.Product], error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// CatalogService lists and edits catalog products and feeds products into
// the cart.
type CatalogService struct {
	gateway CatalogGateway
	cart    *CartService
	logger  *slog.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(gw CatalogGateway, cart *CartService, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		gateway: gw,
		cart:    cart,
		logger:  logger,
	}
}

// List returns one page of products. Limit defaults to 4.
func (s *CatalogService) List(ctx context.Context, page, limit int, search string) (pagination.Page[domain.Product], error) {
	params := pagination.NewParams(page, limit, gateway.DefaultProductLimit)
	return s.gateway.ListProducts(ctx, params, strings.TrimSpace(search))
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	return s.gateway.GetProduct(ctx, id)
}

// Create validates the form and creates a product.
func (s *CatalogService) Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	p, err := s.gateway.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("name", p.Name),
	)
	return p, nil
}

// Update validates the form and replaces a product's fields.
func (s *CatalogService) Update(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	p, err := s.gateway.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", id))
	return p, nil
}

// Delete removes a product.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if err := s.gateway.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// AddToCart fetches the product and adds quantity of it to the cart. The
// cart keeps the product as fetched now; later catalog changes do not reach
// it.
func (s *CatalogService) AddToCart(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	s.cart.AddItem(*p, quantity)
	return s.cart.Snapshot(), nil
}
