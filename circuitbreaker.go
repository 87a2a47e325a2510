package httpclient_adapter

import (
	"fmt"
	"net/http"

	"github.com/JSainsburyPLC/danielchurm/go-httpclient-adapter/circuitbreaker"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerKey identifies a circuit breaker by the host it protects, as it appears in
// http.Request.URL.Host (host or host:port).
type CircuitBreakerKey string

// String returns the string representation of the CircuitBreakerKey.
func (cbk CircuitBreakerKey) String() string {
	return string(cbk)
}

type CircuitBreakerSettings struct {
	gobreaker.Settings
	Key        CircuitBreakerKey
	ShouldTrip func(statusCode int) bool
}

func newCircuitBreakers(cbSettings map[CircuitBreakerKey]CircuitBreakerSettings) map[CircuitBreakerKey]*circuitbreaker.Breaker {
	breakers := make(map[CircuitBreakerKey]*circuitbreaker.Breaker)
	for key, settings := range cbSettings {
		if settings.Name == "" {
			settings.Name = key.String()
		}

		breakers[key] = circuitbreaker.New(circuitbreaker.Settings{
			Settings:   settings.Settings,
			ShouldTrip: settings.ShouldTrip,
		})
	}

	return breakers
}

// GetBreaker returns the circuit breaker for the given host key.
// Panics if the circuit breaker is not configured.
func (a *Adapter) GetBreaker(key CircuitBreakerKey) *circuitbreaker.Breaker {
	breaker, exists := a.breakers[key]
	if !exists {
		panic(fmt.Sprintf("circuit breaker %q not configured", key))
	}

	return breaker
}

// breakerTransport routes each request through the breaker of its host. Breakers belong to the
// adapter, so every cached Client shares them.
type breakerTransport struct {
	next     http.RoundTripper
	breakers map[CircuitBreakerKey]*circuitbreaker.Breaker
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	breaker, ok := t.breakers[CircuitBreakerKey(req.URL.Host)]
	if !ok {
		return t.next.RoundTrip(req)
	}

	return breaker.RoundTrip(t.next, req)
}
