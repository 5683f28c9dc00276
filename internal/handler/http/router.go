package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Services are the collaborators the storefront API drives.
type Services struct {
	Session  SessionManager
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	View     *service.ViewState
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cors middleware.CORSConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cors))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogging(logger, currentUserID(svc.Session)))
	r.Use(middleware.PrometheusMetrics)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	sessionHandler := NewSessionHandler(svc.Session, svc.View, logger)
	productHandler := NewProductHandler(svc.Catalog, logger)
	cartHandler := NewCartHandler(svc.Cart, svc.Catalog, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)
	viewHandler := NewViewHandler(svc.View)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Post("/", sessionHandler.SignIn)
			r.Delete("/", sessionHandler.SignOut)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{id}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Delete("/", cartHandler.Clear)
			r.Get("/badge", cartHandler.Badge)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.State)
			r.Post("/", checkoutHandler.Begin)
			r.Delete("/", checkoutHandler.Abort)
			r.Post("/confirm", checkoutHandler.Confirm)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Get("/{id}", orderHandler.Get)
			r.Post("/{id}/cancel", orderHandler.Cancel)
			r.Delete("/{id}", orderHandler.Delete)
		})

		r.Get("/view", viewHandler.Get)
	})

	return r
}

func currentUserID(s SessionManager) middleware.UserResolver {
	return func(*http.Request) string {
		if u, ok := s.CurrentUser(); ok {
			return u.ID
		}
		return ""
	}
}
