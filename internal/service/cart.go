package service

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// CartService is the cart aggregate: the single owner of the visitor's line
// items and of the observers that render them.
//
// Every mutating call applies its change and then calls each observer once,
// in subscription order, before returning. Mutations and their fan-out are
// serialized, so observers see changes one at a time. Observers may read the
// cart from their callback but must not mutate it synchronously; doing so
// deadlocks.
type CartService struct {
	write sync.Mutex // held for a mutation and its notifications

	mu        sync.RWMutex
	items     []domain.LineItem
	observers []*observer
	nextID    uint64

	logger *slog.Logger
}

type observer struct {
	id uint64
	fn func()
}

// NewCartService creates an empty cart.
func NewCartService(logger *slog.Logger) *CartService {
	return &CartService{logger: logger}
}

// AddItem adds quantity of product. An existing line for the same product
// keeps its snapshot and unit price and only grows in quantity; a new line
// snapshots the product and its current price. A line whose quantity ends at
// zero or below is removed.
func (s *CartService) AddItem(product domain.Product, quantity int) {
	s.mutate("add", func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, product.ID); i >= 0 {
			items[i].Quantity += quantity
			if items[i].Quantity <= 0 {
				return slices.Delete(items, i, i+1)
			}
			return items
		}
		if quantity <= 0 {
			return items
		}
		return append(items, domain.LineItem{
			ProductRef: product.ID,
			Product:    product.Snapshot(),
			Quantity:   quantity,
			UnitPrice:  product.Price,
		})
	})
}

// AddOne adds a single unit of product.
func (s *CartService) AddOne(product domain.Product) {
	s.AddItem(product, 1)
}

// RemoveItem deletes the line for ref. Observers are notified even when
// there was no such line.
func (s *CartService) RemoveItem(ref string) {
	s.mutate("remove", func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, ref); i >= 0 {
			return slices.Delete(items, i, i+1)
		}
		return items
	})
}

// UpdateQuantity sets the quantity of the line for ref, removing it when
// quantity is zero or below. A missing line is left alone.
func (s *CartService) UpdateQuantity(ref string, quantity int) {
	s.mutate("update", func(items []domain.LineItem) []domain.LineItem {
		i := indexOf(items, ref)
		switch {
		case i < 0:
			return items
		case quantity <= 0:
			return slices.Delete(items, i, i+1)
		default:
			items[i].Quantity = quantity
			return items
		}
	})
}

// Clear removes every line.
func (s *CartService) Clear() {
	s.mutate("clear", func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// Items returns a copy of the lines in insertion order.
func (s *CartService) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]domain.LineItem, 0, len(s.items)), s.items...)
}

// Snapshot returns a copy of the whole cart.
func (s *CartService) Snapshot() domain.Cart {
	return domain.Cart{Items: s.Items()}
}

// TotalAmount returns Σ unit price × quantity.
func (s *CartService) TotalAmount() decimal.Decimal {
	return s.Snapshot().TotalAmount()
}

// ItemCount returns Σ quantity.
func (s *CartService) ItemCount() int {
	return s.Snapshot().ItemCount()
}

// Subscribe registers fn to be called after every mutation. The returned
// function unsubscribes; calling it more than once is harmless.
func (s *CartService) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, &observer{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.observers = slices.DeleteFunc(s.observers, func(o *observer) bool {
				return o.id == id
			})
		})
	}
}

func (s *CartService) mutate(op string, fn func([]domain.LineItem) []domain.LineItem) {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	s.items = fn(s.items)
	lines := len(s.items)
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	s.logger.Debug("cart changed",
		slog.String("op", op),
		slog.Int("lines", lines),
	)

	for _, o := range observers {
		o.fn()
	}
}

func indexOf(items []domain.LineItem, ref string) int {
	return slices.IndexFunc(items, func(l domain.LineItem) bool {
		return l.ProductRef == ref
	})
}
