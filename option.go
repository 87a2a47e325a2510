package httpclient_adapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option is a functional option for configuring the Adapter.
// Provided options:
//   - WithConfig: Client level settings applied to every Client at construction
//   - WithRequestTimeout: Overall cap on a request, including retries
//   - WithRetries: Enable automatic retries with exponential backoff
//   - WithHeaders: Configure static and context-based headers
//   - WithCircuitBreakers: Configure circuit breakers for hosts
//   - WithCircuitBreaker: Configure a single circuit breaker for a host
//   - WithConnectionPool: Configure connection pooling settings
//   - WithMetrics: Register Prometheus metrics
//   - WithRequestLogging: Log every request
//   - WithoutNewRelic: Disable New Relic instrumentation (not recommended)
type Option func(*config)

// Config holds client level settings applied to every Client the adapter constructs.
// Zero values use the client defaults (DefaultKeepAliveTimeout, DefaultSSLTimeout).
//
// Example:
//
//	adapter, _ := New(WithConfig(Config{
//	    KeepAliveTimeout: 20 * time.Second,
//	    SSLTimeout:       25 * time.Second,
//	}))
type Config struct {
	KeepAliveTimeout time.Duration `yaml:"keep_alive_timeout"`
	SSLTimeout       time.Duration `yaml:"ssl_timeout"`
}

// WithConfig sets the client level settings. Later calls replace earlier ones.
func WithConfig(c Config) Option {
	return func(cfg *config) {
		cfg.client = c
	}
}

// WithRequestTimeout caps the total time of a request, including connection, redirects, retries
// and reading the body. It is independent of the per-request connect/send/receive timeouts.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.requestTimeout = timeout
	}
}

// WithoutNewRelic disables newrelic integration with the http client.
// Not recommended - only for use in tests and/or very specific scenarios
func WithoutNewRelic() Option {
	return func(cfg *config) {
		cfg.newRelicEnabled = false
	}
}

// WithRequestLogging logs every request with its status, duration and response size.
func WithRequestLogging() Option {
	return func(cfg *config) {
		cfg.requestLogging = true
	}
}

// WithMetrics registers connection cache and request metrics on registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.metricsRegisterer = registerer
	}
}

// WithCircuitBreakers configures circuit breakers for several hosts.
// Keys are matched against the request URL host (host or host:port).
//
// If Name is omitted in gobreaker.Settings, the circuit breaker will be named after the key.
//
// Example:
//
//	adapter, _ := New(
//	    WithCircuitBreakers([]CircuitBreakerSettings{
//	        {
//	            Key: "payments.internal:8443",
//	            Settings: gobreaker.Settings{
//	                MaxRequests: 10,
//	                Interval:    60 * time.Second,
//	                Timeout:     30 * time.Second,
//	                ReadyToTrip: func(counts gobreaker.Counts) bool {
//	                    return counts.ConsecutiveFailures >= 5
//	                },
//	            },
//	            ShouldTrip: func(code int) bool { return code == 429 || code >= 500 },
//	        },
//	    }),
//	)
func WithCircuitBreakers(breakers []CircuitBreakerSettings) Option {
	return func(cfg *config) {
		for _, settings := range breakers {
			cfg.circuitBreakerSettings[settings.Key] = settings
		}
	}
}

// WithCircuitBreaker configures a circuit breaker for a single host.
func WithCircuitBreaker(settings CircuitBreakerSettings) Option {
	return func(cfg *config) {
		cfg.circuitBreakerSettings[settings.Key] = settings
	}
}

// WithRetries enables automatic retries with exponential backoff for transient failures.
// Retries are only attempted for idempotent HTTP methods (GET, PUT, DELETE, HEAD, OPTIONS, TRACE).
// POST, PATCH and CONNECT requests are never retried.
//
// Zero values in RetrySettings will use sensible defaults:
//   - MaxRetries: 3
//   - InitialInterval: 500ms
//   - MaxInterval: 60s
//   - Multiplier: 1.5
//   - RetriableStatusCodes: [429, 502, 503, 504]
//
// The retry mechanism respects Retry-After headers from servers (429, 503 responses).
// When WithRequestTimeout is set, the worst case backoff must fit inside it.
//
// Example:
//
//	adapter, _ := New(
//	    WithRequestTimeout(30 * time.Second),
//	    WithRetries(RetrySettings{
//	        MaxRetries:      5,
//	        InitialInterval: 1 * time.Second,
//	        MaxInterval:     10 * time.Second,
//	    }),
//	)
func WithRetries(settings RetrySettings) Option {
	return func(cfg *config) {
		cfg.retrySettings = &settings
	}
}

// WithHeaders configures static and context-based headers to be added to every request.
//
// Headers are only added if not already present in the request, so Env.RequestHeaders always win.
//
// Example:
//
//	type contextKey string
//	const RequestIDKey contextKey = "request-id"
//
//	adapter, _ := New(
//	    WithHeaders(HeaderSettings{
//	        ContextHeaders: map[string]any{
//	            "X-Request-ID": RequestIDKey,
//	        },
//	        StaticHeaders: map[string]string{
//	            "X-API-Key": "secret",
//	        },
//	    }),
//	)
func WithHeaders(settings HeaderSettings) Option {
	return func(cfg *config) {
		cfg.headerSettings = &settings
	}
}

// WithConnectionPool configures connection pooling settings for every Client.
//
// Example:
//
//	adapter, _ := New(
//	    WithConnectionPool(PoolSettings{
//	        MaxIdleConns:        100,
//	        MaxIdleConnsPerHost: 10,
//	    }),
//	)
func WithConnectionPool(settings PoolSettings) Option {
	return func(cfg *config) {
		cfg.poolSettings = &settings
	}
}
