package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Config holds all configuration for the storefront.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Remote services
	OrderServiceURL   string `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:3000/orders"`
	ProductServiceURL string `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:3000/products"`

	// Outbound HTTP client
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`
	HTTPClientRetries int           `env:"HTTP_CLIENT_RETRIES" envDefault:"2"`
	HTTPRateLimit     float64       `env:"HTTP_CLIENT_RATE_LIMIT" envDefault:"20"`
	HTTPRateBurst     int           `env:"HTTP_CLIENT_RATE_BURST" envDefault:"10"`
	CircuitBreaker    bool          `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`

	// Redis order cache; empty address disables it
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPass     string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	OrderCacheTTL time.Duration `env:"ORDER_CACHE_TTL" envDefault:"30s"`
	RedisSlowCmd  time.Duration `env:"REDIS_SLOW_THRESHOLD" envDefault:"50ms"`

	// Kafka events; no brokers disables publishing
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Checkout
	CheckoutRedirectDelay time.Duration `env:"CHECKOUT_REDIRECT_DELAY" envDefault:"2s"`

	// Auth: when set, session tokens must carry a valid HMAC signature
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CacheEnabled reports whether the order cache is configured.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

// EventsEnabled reports whether event publishing is configured.
func (c *Config) EventsEnabled() bool { return len(c.KafkaBrokers) > 0 }

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	for name, raw := range map[string]string{
		"ORDER_SERVICE_URL":   c.OrderServiceURL,
		"PRODUCT_SERVICE_URL": c.ProductServiceURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.HTTPClientRetries < 0 {
		return fmt.Errorf("HTTP_CLIENT_RETRIES must not be negative")
	}
	if c.OrderCacheTTL <= 0 {
		return fmt.Errorf("ORDER_CACHE_TTL must be positive")
	}
	if c.CheckoutRedirectDelay < 0 {
		return fmt.Errorf("CHECKOUT_REDIRECT_DELAY must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}
