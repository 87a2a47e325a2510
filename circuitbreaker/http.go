package circuitbreaker

import (
	"errors"
	"net/http"

	log "github.com/JSainsburyPLC/go-logrus-wrapper/v2"
	"github.com/sirupsen/logrus"

	"github.com/sony/gobreaker/v2"
)

type Settings struct {
	gobreaker.Settings
	ShouldTrip func(statusCode int) bool
}

// Breaker guards round trips with a gobreaker circuit breaker. A Breaker is independent of any
// transport so one breaker can be shared by every client talking to the same host.
type Breaker struct {
	cb         *gobreaker.CircuitBreaker[*http.Response]
	shouldTrip func(statusCode int) bool
}

func New(settings Settings) *Breaker {
	if settings.OnStateChange == nil {
		settings.OnStateChange = logCBStateChange
	}

	if settings.ShouldTrip == nil {
		settings.ShouldTrip = func(statusCode int) bool {
			return statusCode >= http.StatusInternalServerError
		}
	}

	return &Breaker{
		cb:         gobreaker.NewCircuitBreaker[*http.Response](settings.Settings),
		shouldTrip: settings.ShouldTrip,
	}
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) ShouldTrip(statusCode int) bool {
	return b.shouldTrip(statusCode)
}

var errBadResponse = errors.New("server error")

// RoundTrip sends req through next while the breaker is closed or half-open.
// Responses matching ShouldTrip count as failures but are still returned to the caller without an
// error, so the caller decides how to handle the body.
func (b *Breaker) RoundTrip(next http.RoundTripper, req *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if resp != nil && b.shouldTrip(resp.StatusCode) {
			return resp, errBadResponse
		}

		return resp, err
	})

	if errors.Is(err, errBadResponse) {
		return resp, nil
	}

	return resp, err
}

type circuitBreakerTransport struct {
	wrapped http.RoundTripper
	breaker *Breaker
}

// NewRoundTripper binds a new breaker to a single transport.
func NewRoundTripper(wrapped http.RoundTripper, settings Settings) http.RoundTripper {
	return &circuitBreakerTransport{
		wrapped: wrapped,
		breaker: New(settings),
	}
}

func (t circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.breaker.RoundTrip(t.wrapped, req)
}

func logCBStateChange(name string, from gobreaker.State, to gobreaker.State) {
	log.WithFields(logrus.Fields{
		"circuit_breaker": name,
		"from_state":      from.String(),
		"to_state":        to.String(),
	}).Error("circuit breaker changed state")
}
