package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// ViewHandler exposes the page the storefront should show.
type ViewHandler struct {
	view *service.ViewState
}

// NewViewHandler creates a new view HTTP handler.
func NewViewHandler(view *service.ViewState) *ViewHandler {
	return &ViewHandler{view: view}
}

// Get handles GET /api/v1/view
func (h *ViewHandler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.view.Current())
}
