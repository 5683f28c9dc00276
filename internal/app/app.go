package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/repository"
	rediscache "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	relay          *event.CartRelay
	stopRelay      context.CancelFunc
	checkout       *service.CheckoutService
	unsubscribe    []func()
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	session := auth.NewSession(cfg.AuthJWTSecret, logger)
	healthHandler := health.NewHandler()

	// Outbound HTTP client, one breaker per remote service.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.HTTPClientTimeout,
		MaxRetries:      cfg.HTTPClientRetries,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 20,
		RateLimit:       cfg.HTTPRateLimit,
		Burst:           cfg.HTTPRateBurst,
	})
	doerFor := func(name, remote string) httpclient.HTTPDoer {
		if !cfg.CircuitBreaker {
			return baseClient
		}
		cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
		logger.Info("circuit breaker initialized",
			slog.String("name", cbCfg.Name),
			slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
			slog.Duration("timeout", cbCfg.Timeout),
		)
		return httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger).
			WithFallback(gateway.CircuitOpenFallback(remote))
	}

	orderGW := gateway.NewOrderGateway(cfg.OrderServiceURL, doerFor("order-service", "order service"), session, logger)
	catalogGW := gateway.NewCatalogGateway(cfg.ProductServiceURL, doerFor("product-service", "product service"), session, logger)
	healthHandler.RegisterOptional("order-service", orderGW.Ping)
	healthHandler.RegisterOptional("product-service", catalogGW.Ping)

	// Optional Redis order cache. A nil interface disables caching.
	var cache repository.OrderCache
	if cfg.CacheEnabled() {
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:          cfg.RedisAddr,
			Password:      cfg.RedisPass,
			DB:            cfg.RedisDB,
			SlowThreshold: cfg.RedisSlowCmd,
		}, logger)
		if err != nil {
			logger.Warn("redis unreachable, order cache disabled",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("connected to Redis",
				slog.String("addr", cfg.RedisAddr),
				slog.Int("db", cfg.RedisDB),
			)
			orderCache := rediscache.NewOrderCache(rdb, cfg.OrderCacheTTL)
			healthHandler.RegisterOptional("redis", orderCache.Ping)
			cache = orderCache
			a.rdb = rdb
		}
	}

	// Optional Kafka producer.
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.EventsEnabled() {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		healthHandler.RegisterOptional("kafka", producer.Ping)
		publisher = event.NewProducer(producer, logger)
		a.producer = producer
	}

	// Build the dependency graph.
	view := service.NewViewState(logger)
	cart := service.NewCartService(logger)
	a.relay = event.NewCartRelay(cart, publisher, func() string {
		if u, ok := session.CurrentUser(); ok {
			return u.ID
		}
		return ""
	}, logger)
	a.unsubscribe = append(a.unsubscribe,
		cart.Subscribe(service.CartGauges(cart)),
		cart.Subscribe(a.relay.Notify),
	)

	a.checkout = service.NewCheckoutService(cart, orderGW, session, view, publisher, logger, cfg.CheckoutRedirectDelay)

	router := handler.NewRouter(handler.Services{
		Session:  session,
		Catalog:  service.NewCatalogService(catalogGW, cart, logger),
		Cart:     cart,
		Checkout: a.checkout,
		Orders:   service.NewOrderService(orderGW, cache, session, publisher, logger),
		View:     view,
	}, healthHandler, middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Handler returns the storefront HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and the cart event relay and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	a.stopRelay = stopRelay
	go a.relay.Run(relayCtx)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown gracefully stops all components. The HTTP server stops first so
// the cart relay drains every change made by in-flight requests.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.checkout.Stop()
	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}

	if a.stopRelay != nil {
		a.stopRelay()
		select {
		case <-a.relay.Done():
		case <-shutdownCtx.Done():
			a.logger.Warn("cart event relay did not drain before deadline")
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
