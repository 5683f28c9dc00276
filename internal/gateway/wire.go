package gateway

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// Wire shapes of the order and product services (Mongo-style _id fields,
// camelCase names).

type wireProduct struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"isActive"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p wireProduct) toDomain() domain.Product {
	return domain.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// wireProductRef is an order item's product: populated or a bare id.
type wireProductRef struct {
	ID    string          `json:"_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

func (p *wireProductRef) UnmarshalJSON(b []byte) error {
	if isJSONString(b) {
		return json.Unmarshal(b, &p.ID)
	}
	type plain wireProductRef
	return json.Unmarshal(b, (*plain)(p))
}

type wireUser struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

func (u *wireUser) UnmarshalJSON(b []byte) error {
	if isJSONString(b) {
		return json.Unmarshal(b, &u.ID)
	}
	type plain wireUser
	return json.Unmarshal(b, (*plain)(u))
}

type wireOrderItem struct {
	Product  wireProductRef  `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type wireOrder struct {
	ID          string          `json:"_id"`
	User        wireUser        `json:"user"`
	Items       []wireOrderItem `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (o wireOrder) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, domain.OrderItem{
			Product: domain.ProductSnapshot{
				ID:    it.Product.ID,
				Name:  it.Product.Name,
				Price: it.Product.Price,
				Image: it.Product.Image,
			},
			Quantity: it.Quantity,
			Price:    it.Price,
			Subtotal: it.Subtotal,
		})
	}
	return domain.Order{
		ID:          o.ID,
		User:        domain.OrderUser{ID: o.User.ID, Email: o.User.Email},
		Items:       items,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func isJSONString(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '"'
}
