package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

const mugJSON = `{"_id":"p-1","name":"Mug","price":12.5,"description":"Stoneware","category":"kitchen","stock":3,"isActive":true,"image":"uploads/mug.png"}`

func validInput() domain.ProductInput {
	return domain.ProductInput{
		Name:        "Mug",
		Price:       decimal.RequireFromString("12.50"),
		Description: "Stoneware",
		Category:    "kitchen",
		Stock:       3,
		IsActive:    true,
	}
}

func TestCatalogGateway_ListProducts(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "4", r.URL.Query().Get("limit"))
		assert.Equal(t, "mug", r.URL.Query().Get("search"))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeBody(w, http.StatusOK, `{"data":{"data":[`+mugJSON+`],"total":1}}`)
	})
	g := NewCatalogGateway(server.URL, testClient(), fakeAuth{}, discardLogger())

	page, err := g.ListProducts(context.Background(), pagination.NewParams(0, 0, DefaultProductLimit), "mug")
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	p := page.Data[0]
	assert.Equal(t, "p-1", p.ID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(p.Price))
	assert.Equal(t, 3, p.Stock)
	assert.True(t, p.IsActive)
	assert.Equal(t, 1, page.TotalPages)
}

func TestCatalogGateway_ListProductsOmitsEmptySearch(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["search"]
		assert.False(t, ok)
		writeBody(w, http.StatusOK, `{"data":{"data":[],"total":0}}`)
	})
	g := NewCatalogGateway(server.URL, testClient(), fakeAuth{}, discardLogger())

	page, err := g.ListProducts(context.Background(), pagination.NewParams(1, 4, DefaultProductLimit), "")
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
}

func TestCatalogGateway_GetProductNotFound(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detail/p-404", r.URL.Path)
		writeBody(w, http.StatusNotFound, `{"message":"Product not found"}`)
	})
	g := NewCatalogGateway(server.URL, testClient(), fakeAuth{}, discardLogger())

	_, err := g.GetProduct(context.Background(), "p-404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "product with id p-404 not found")
}

func TestCatalogGateway_CreateProductSendsMultipartForm(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/create", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Mug", r.FormValue("name"))
		assert.Equal(t, "12.5", r.FormValue("price"))
		assert.Equal(t, "Stoneware", r.FormValue("description"))
		assert.Equal(t, "kitchen", r.FormValue("category"))
		assert.Equal(t, "3", r.FormValue("stock"))
		assert.Equal(t, "true", r.FormValue("isActive"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "mug.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("png-bytes"), data)

		writeBody(w, http.StatusCreated, `{"data":`+mugJSON+`}`)
	})
	g := NewCatalogGateway(server.URL, testClient(), signedIn, discardLogger())

	in := validInput()
	in.ImageFile = &domain.Upload{Filename: "mug.png", ContentType: "image/png", Data: []byte("png-bytes")}

	p, err := g.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
}

func TestCatalogGateway_UpdateProductKeepsExistingImage(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/update/p-1", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "uploads/mug.png", r.FormValue("image"))
		writeBody(w, http.StatusOK, `{"data":`+mugJSON+`}`)
	})
	g := NewCatalogGateway(server.URL, testClient(), signedIn, discardLogger())

	in := validInput()
	in.Image = "uploads/mug.png"

	p, err := g.UpdateProduct(context.Background(), "p-1", in)
	require.NoError(t, err)
	assert.Equal(t, "uploads/mug.png", p.Image)
}

func TestCatalogGateway_InvalidFormIsRejectedLocally(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	g := NewCatalogGateway(server.URL, testClient(), signedIn, discardLogger())

	in := validInput()
	in.Name = ""
	in.Price = decimal.Zero

	_, err := g.CreateProduct(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	var verr *validator.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields(), "name")
	assert.Contains(t, verr.Fields(), "price")
	assert.Equal(t, int32(0), hits.Load())
}

func TestCatalogGateway_DeleteProduct(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/delete/p-1", r.URL.Path)
		writeBody(w, http.StatusOK, `{"message":"Product deleted"}`)
	})
	g := NewCatalogGateway(server.URL, testClient(), signedIn, discardLogger())

	require.NoError(t, g.DeleteProduct(context.Background(), "p-1"))
}

func TestCatalogGateway_DeleteForbidden(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusForbidden, `{"error":{"code":"FORBIDDEN","message":"Admins only"}}`)
	})
	g := NewCatalogGateway(server.URL, testClient(), signedIn, discardLogger())

	err := g.DeleteProduct(context.Background(), "p-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Contains(t, err.Error(), "Admins only")
}
