package httpclient_adapter

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/JSainsburyPLC/danielchurm/go-httpclient-adapter/circuitbreaker"
	"github.com/JSainsburyPLC/danielchurm/go-httpclient-adapter/logger"
	log "github.com/JSainsburyPLC/go-logrus-wrapper/v2"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Adapter executes requests described by an Env on net/http clients and caches those clients so
// connections are reused across requests.
//
// Every Client the adapter builds gets the same transport chain:
//   - Per-handle pooled transport with connect/send/receive timeouts, TLS, proxy and bind settings
//   - Optional request logging
//   - Circuit breakers for configured hosts
//   - Configurable static and context-based headers
//   - New Relic instrumentation
//   - Automatic retries with exponential backoff for transient failures
//
// An Adapter is safe for concurrent use.
type Adapter struct {
	cfg      *config
	breakers map[CircuitBreakerKey]*circuitbreaker.Breaker
	metrics  *MetricsCollector

	mu      sync.Mutex
	clients map[cacheKey]*Client
}

type config struct {
	client                 Config
	requestTimeout         time.Duration
	newRelicEnabled        bool
	requestLogging         bool
	metricsRegisterer      prometheus.Registerer
	retrySettings          *RetrySettings
	headerSettings         *HeaderSettings
	poolSettings           *PoolSettings
	circuitBreakerSettings map[CircuitBreakerKey]CircuitBreakerSettings
}

// New creates an Adapter with the given options.
//
// By default, New integrates with New Relic for monitoring. Use WithoutNewRelic to disable.
//
// Example usage:
//
//	adapter, err := New(
//	    WithConfig(Config{KeepAliveTimeout: 20 * time.Second}),
//	    WithRetries(RetrySettings{MaxRetries: 2}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	env := NewEnv(http.MethodGet, target)
//	env.Request.Timeout = 5 * time.Second
//	resp, err := adapter.Call(ctx, env)
func New(opts ...Option) (*Adapter, error) {
	cfg := &config{
		newRelicEnabled:        true,
		circuitBreakerSettings: make(map[CircuitBreakerKey]CircuitBreakerSettings),
	}

	for _, o := range opts {
		o(cfg)
	}

	if cfg.requestTimeout < 0 {
		return nil, fmt.Errorf("request timeout must be >= 0, got: %v", cfg.requestTimeout)
	}

	if cfg.client.KeepAliveTimeout < 0 || cfg.client.SSLTimeout < 0 {
		return nil, fmt.Errorf("client timeouts must be >= 0, got keep alive %v, ssl %v",
			cfg.client.KeepAliveTimeout, cfg.client.SSLTimeout)
	}

	if cfg.retrySettings != nil {
		if err := validateRetrySettings(*cfg.retrySettings, cfg.requestTimeout); err != nil {
			return nil, fmt.Errorf("failed to validate retry settings: %w", err)
		}
	}

	var metrics *MetricsCollector
	if cfg.metricsRegisterer != nil {
		metrics = NewMetricsCollector(cfg.metricsRegisterer)
	}

	return &Adapter{
		cfg:      cfg,
		breakers: newCircuitBreakers(cfg.circuitBreakerSettings),
		metrics:  metrics,
		clients:  make(map[cacheKey]*Client),
	}, nil
}

// BuildConnection constructs a new Client for env without consulting or filling the cache.
// The adapter Config, the SSL options and the request timeouts of env are applied.
func (a *Adapter) BuildConnection(env *Env) (*Client, error) {
	if env == nil {
		return nil, errNilEnv
	}

	localAddr, err := bindAddr(env.Request.Bind)
	if err != nil {
		return nil, err
	}

	tlsConfig, clientCert, err := newTLSConfig(env.SSL)
	if err != nil {
		return nil, err
	}

	proxy, err := proxyFunc(env.Request.Proxy)
	if err != nil {
		return nil, err
	}

	keepAlive := a.cfg.client.KeepAliveTimeout
	if keepAlive == 0 {
		keepAlive = DefaultKeepAliveTimeout
	}

	sslTimeout := a.cfg.client.SSLTimeout
	if sslTimeout == 0 {
		sslTimeout = DefaultSSLTimeout
	}

	c := newHandle(keepAlive, SSLConfig{Timeout: sslTimeout, ClientCert: clientCert}, localAddr)

	transport := newBaseTransport(a.cfg.poolSettings)
	transport.DialContext = c.dialContext
	transport.TLSClientConfig = tlsConfig
	transport.TLSHandshakeTimeout = sslTimeout
	transport.IdleConnTimeout = keepAlive
	transport.Proxy = proxy

	if _, err := configureHTTP2(transport, a.cfg.poolSettings); err != nil {
		return nil, err
	}

	c.transport = transport
	c.http = &http.Client{
		Transport: a.wrapTransport(transport),
		Timeout:   a.cfg.requestTimeout,
	}

	ConfigureTimeouts(c, env.Request)

	log.WithFields(logrus.Fields{
		"connect_timeout":    c.ConnectTimeout().String(),
		"send_timeout":       c.SendTimeout().String(),
		"receive_timeout":    c.ReceiveTimeout().String(),
		"keep_alive_timeout": keepAlive.String(),
		"client_cert":        clientCert != nil,
		"proxy":              env.Request.Proxy.URI != "",
	}).Debug("built http client")

	return c, nil
}

func (a *Adapter) wrapTransport(base *http.Transport) http.RoundTripper {
	var transport http.RoundTripper = &connTracker{next: base}

	if a.cfg.requestLogging {
		transport = logger.NewRoundTripper(transport)
	}

	if len(a.breakers) > 0 {
		transport = &breakerTransport{next: transport, breakers: a.breakers}
	}

	if a.cfg.headerSettings != nil {
		transport = newHeaderTransport(transport, *a.cfg.headerSettings)
	}

	if a.cfg.newRelicEnabled {
		transport = newrelic.NewRoundTripper(transport)
	}

	if a.cfg.retrySettings != nil {
		transport = newRetryTransport(transport, *a.cfg.retrySettings)
	}

	return transport
}

// Close closes idle connections of every cached Client and empties the cache. Clients already
// handed out keep working and open new connections as needed.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, c := range a.clients {
		c.CloseIdleConnections()
		delete(a.clients, key)
	}

	a.metrics.setCachedClients(0)
}
