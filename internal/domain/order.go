package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order status constants.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Order is an order as reported by the order service. Totals, item prices
// and subtotals are computed remotely and only ever read here.
type Order struct {
	ID          string          `json:"id"`
	User        OrderUser       `json:"user"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderUser is the owner of an order.
type OrderUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// OrderItem is one line of a remote order.
type OrderItem struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{StatusPending, StatusCompleted, StatusCancelled}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions exist. Completion
// happens outside the storefront; a deleted order leaves the collection and
// has no status.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		StatusPending:   {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	for _, s := range AllowedTransitions()[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// CanCancel reports whether the visitor may cancel the order.
func CanCancel(o *Order) bool {
	return o != nil && o.CanTransitionTo(StatusCancelled)
}

// CanDelete reports whether the visitor may delete the order.
func CanDelete(o *Order) bool {
	return o != nil && o.Status == StatusCancelled
}

// StatusColor returns the badge color for a status.
func StatusColor(status string) string {
	switch status {
	case StatusPending:
		return "yellow"
	case StatusCompleted:
		return "green"
	case StatusCancelled:
		return "red"
	default:
		return "gray"
	}
}

// OrderSummary is the condensed view of an order shown in lists.
type OrderSummary struct {
	ItemCount      int             `json:"item_count"`
	UniqueProducts int             `json:"unique_products"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status"`
	StatusColor    string          `json:"status_color"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Summary condenses the order.
func (o *Order) Summary() OrderSummary {
	var count int
	for _, item := range o.Items {
		count += item.Quantity
	}
	return OrderSummary{
		ItemCount:      count,
		UniqueProducts: len(o.Items),
		TotalAmount:    o.TotalAmount,
		Status:         o.Status,
		StatusColor:    StatusColor(o.Status),
		CreatedAt:      o.CreatedAt,
	}
}

// CreateOrderRequest is the body sent to create an order. It carries no
// prices or totals; the order service computes them.
type CreateOrderRequest struct {
	User  string            `json:"user"`
	Items []CreateOrderItem `json:"items"`
}

// CreateOrderItem is a product reference and a quantity.
type CreateOrderItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// ValidateOrderItems returns one message per problem; empty when valid.
func ValidateOrderItems(items []CreateOrderItem) []string {
	var errs []string
	if len(items) == 0 {
		errs = append(errs, "order must contain at least one item")
	}
	for i, item := range items {
		if item.Product == "" {
			errs = append(errs, fmt.Sprintf("item %d: product reference is required", i+1))
		}
		if item.Quantity < 1 {
			errs = append(errs, fmt.Sprintf("item %d: quantity must be at least 1", i+1))
		}
	}
	return errs
}

// UnmarshalJSON accepts either an embedded user object or a bare user id.
func (u *OrderUser) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &u.ID)
	}
	type plain OrderUser
	return json.Unmarshal(b, (*plain)(u))
}
