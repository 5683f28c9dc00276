package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart. ProductRef identifies the product and
// must be non-empty for the line to be checked out; UnitPrice is the price
// seen when the product was first added.
type LineItem struct {
	ProductRef string          `json:"product_ref"`
	Product    ProductSnapshot `json:"product"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Subtotal returns UnitPrice × Quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a point-in-time copy of the cart aggregate, items in insertion
// order. Totals are derived on every call.
type Cart struct {
	Items []LineItem `json:"items"`
}

// ItemCount returns the sum of quantities.
func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// TotalAmount returns the sum of line subtotals.
func (c Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// LineCount returns the number of distinct lines.
func (c Cart) LineCount() int {
	return len(c.Items)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// OrderItems converts the lines into order request items: product reference
// and quantity only.
func (c Cart) OrderItems() []CreateOrderItem {
	items := make([]CreateOrderItem, 0, len(c.Items))
	for _, line := range c.Items {
		items = append(items, CreateOrderItem{Product: line.ProductRef, Quantity: line.Quantity})
	}
	return items
}

// CheckoutProblems lists why the cart cannot be checked out, in the order
// they should be reported. An empty result means the cart is eligible.
func (c Cart) CheckoutProblems() []string {
	if c.IsEmpty() {
		return []string{"your cart is empty"}
	}
	var problems []string
	for i, line := range c.Items {
		if line.ProductRef == "" {
			problems = append(problems, fmt.Sprintf("item %d: product reference is required", i+1))
		}
	}
	return problems
}
