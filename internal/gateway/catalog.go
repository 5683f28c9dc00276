package gateway

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// DefaultProductLimit is the catalog page size used when none is given.
const DefaultProductLimit = 4

// CatalogGateway calls the product service. Reads are public; writes carry
// the visitor's credential when there is one.
type CatalogGateway struct {
	remote remote
}

// NewCatalogGateway creates a catalog gateway rooted at baseURL, e.g.
// http://localhost:3000/products.
func NewCatalogGateway(baseURL string, client httpclient.HTTPDoer, auth Authenticator, logger *slog.Logger) *CatalogGateway {
	return &CatalogGateway{remote: remote{
		service: "product service",
		baseURL: baseURL,
		client:  client,
		auth:    auth,
		logger:  logger,
	}}
}

// ListProducts returns one page of products, optionally filtered by search.
func (g *CatalogGateway) ListProducts(ctx context.Context, params pagination.Params, search string) (pagination.Page[domain.Product], error) {
	q := params.Query()
	if search != "" {
		q.Set("search", search)
	}

	var out envelope[list[wireProduct]]
	op := operation{name: "list", fallback: "failed to fetch products"}
	if err := g.remote.call(ctx, op, http.MethodGet, "/list?"+q.Encode(), "", nil, &out); err != nil {
		return pagination.Page[domain.Product]{}, err
	}

	products := make([]domain.Product, 0, len(out.Data.Data))
	for _, p := range out.Data.Data {
		products = append(products, p.toDomain())
	}
	return pagination.NewPage(products, out.Data.Total, params), nil
}

// GetProduct returns one product.
func (g *CatalogGateway) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	op := operation{name: "detail", resource: "product", id: id, fallback: "failed to fetch product"}
	return g.productCall(ctx, op, http.MethodGet, "/detail/"+url.PathEscape(id), "", nil)
}

// CreateProduct uploads a new product as a multipart form.
func (g *CatalogGateway) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	body, contentType, err := encodeProductForm(in)
	if err != nil {
		return nil, err
	}
	op := operation{name: "create", fallback: "failed to create product"}
	return g.productCall(ctx, op, http.MethodPost, "/create", contentType, body)
}

// UpdateProduct replaces a product's fields as a multipart form.
func (g *CatalogGateway) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	body, contentType, err := encodeProductForm(in)
	if err != nil {
		return nil, err
	}
	op := operation{name: "update", resource: "product", id: id, fallback: "failed to update product"}
	return g.productCall(ctx, op, http.MethodPost, "/update/"+url.PathEscape(id), contentType, body)
}

// DeleteProduct removes a product.
func (g *CatalogGateway) DeleteProduct(ctx context.Context, id string) error {
	op := operation{name: "delete", resource: "product", id: id, fallback: "failed to delete product"}
	return g.remote.call(ctx, op, http.MethodDelete, "/delete/"+url.PathEscape(id), "", nil, nil)
}

// Ping checks the product service answers.
func (g *CatalogGateway) Ping(ctx context.Context) error {
	return g.remote.probe(ctx, "/list?page=1&limit=1")
}

func (g *CatalogGateway) productCall(ctx context.Context, op operation, method, path, contentType string, body []byte) (*domain.Product, error) {
	var out envelope[*wireProduct]
	if err := g.remote.call(ctx, op, method, path, contentType, body, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, apperrors.ServiceError("product service returned no product")
	}
	p := out.Data.toDomain()
	return &p, nil
}

// encodeProductForm validates the input and writes the form fields the
// product service expects.
func encodeProductForm(in domain.ProductInput) ([]byte, string, error) {
	if err := validator.Validate(in); err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", in.Name},
		{"price", in.Price.String()},
		{"description", in.Description},
		{"category", in.Category},
		{"stock", strconv.Itoa(in.Stock)},
		{"isActive", strconv.FormatBool(in.IsActive)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", apperrors.Internal(fmt.Errorf("write form field %s: %w", f[0], err))
		}
	}

	switch {
	case in.ImageFile != nil:
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, in.ImageFile.Filename))
		ct := in.ImageFile.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", apperrors.Internal(fmt.Errorf("create image part: %w", err))
		}
		if _, err := part.Write(in.ImageFile.Data); err != nil {
			return nil, "", apperrors.Internal(fmt.Errorf("write image part: %w", err))
		}
	case in.Image != "":
		if err := w.WriteField("image", in.Image); err != nil {
			return nil, "", apperrors.Internal(fmt.Errorf("write form field image: %w", err))
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", apperrors.Internal(fmt.Errorf("close form: %w", err))
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
