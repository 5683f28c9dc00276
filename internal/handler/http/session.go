package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// SessionManager is the visitor's sign-in state.
type SessionManager interface {
	SignIn(token string) (*domain.User, error)
	SignOut()
	CurrentUser() (*domain.User, bool)
}

// SessionHandler handles HTTP requests for the session endpoints.
type SessionHandler struct {
	session SessionManager
	nav     service.Navigator
	logger  *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(session SessionManager, nav service.Navigator, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{session: session, nav: nav, logger: logger}
}

// SignInRequest is the JSON request body for signing in.
type SignInRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.session.CurrentUser()
	httputil.WriteData(w, http.StatusOK, SessionResponse{Authenticated: ok, User: user})
}

// SignIn handles POST /api/v1/session
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.session.SignIn(req.Token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.nav.Navigate(service.PageHome)

	httputil.WriteData(w, http.StatusOK, SessionResponse{Authenticated: true, User: user})
}

// SignOut handles DELETE /api/v1/session
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut()
	h.nav.Navigate(service.PageLogin)
	w.WriteHeader(http.StatusNoContent)
}
