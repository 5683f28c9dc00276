package service

import (
	"log/slog"
	"sync"
	"time"
)

// Page is a storefront page the visitor can be sent to.
type Page string

// Storefront pages.
const (
	PageHome   Page = "home"
	PageCart   Page = "cart"
	PageOrders Page = "orders"
	PageLogin  Page = "login"
)

// Navigator switches the page the storefront shows.
type Navigator interface {
	Navigate(page Page)
}

// View is the page currently shown and when it was entered.
type View struct {
	Page      Page      `json:"page"`
	ChangedAt time.Time `json:"changed_at"`
}

// ViewState records the current page. Display surfaces poll it to follow
// navigation decided by the services.
type ViewState struct {
	mu      sync.RWMutex
	current View
	logger  *slog.Logger
	now     func() time.Time
}

// NewViewState starts on the home page.
func NewViewState(logger *slog.Logger) *ViewState {
	v := &ViewState{logger: logger, now: time.Now}
	v.current = View{Page: PageHome, ChangedAt: v.now().UTC()}
	return v
}

// Navigate moves to page.
func (v *ViewState) Navigate(page Page) {
	v.mu.Lock()
	from := v.current.Page
	v.current = View{Page: page, ChangedAt: v.now().UTC()}
	v.mu.Unlock()

	v.logger.Debug("navigate",
		slog.String("from", string(from)),
		slog.String("to", string(page)),
	)
}

// Current returns the current view.
func (v *ViewState) Current() View {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}
