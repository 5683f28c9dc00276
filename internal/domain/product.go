package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog record as served by the product service.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	Image       string          `json:"image,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductSnapshot is the denormalized copy of a product taken when it is
// added to the cart. It is never refreshed from the catalog.
type ProductSnapshot struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// Snapshot captures the fields the cart keeps.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Image: p.Image,
	}
}

// ProductInput is the create/update form for a catalog product. Either
// ImageFile (a new upload) or Image (the existing image path) may be set.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	Stock       int             `json:"stock" validate:"gte=0"`
	IsActive    bool            `json:"is_active"`
	Image       string          `json:"image,omitempty"`
	ImageFile   *Upload         `json:"-"`
}

// Upload is an image file attached to a product form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
