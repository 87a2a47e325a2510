package httpclient_adapter

import (
	"fmt"
	"net/http"
)

// HeaderSettings defines headers the adapter adds to every request it executes.
//
// ContextHeaders is a map of header name to context key. If the request context contains a value for
// the key, it is added as a header using fmt.Sprint.
// StaticHeaders is a map of header name to header value.
// UserAgent replaces Go's default User-Agent when the request does not set one.
//
// Headers already present on the request (for example from Env.RequestHeaders) are never replaced.
type HeaderSettings struct {
	ContextHeaders map[string]any
	StaticHeaders  map[string]string
	UserAgent      string
}

type headerTransport struct {
	next     http.RoundTripper
	settings HeaderSettings
}

func newHeaderTransport(next http.RoundTripper, settings HeaderSettings) *headerTransport {
	return &headerTransport{
		next:     next,
		settings: settings,
	}
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqClone := req.Clone(req.Context())

	setIfMissing := func(key, value string) {
		if reqClone.Header.Get(key) == "" {
			reqClone.Header.Set(key, value)
		}
	}

	for k, v := range t.settings.StaticHeaders {
		setIfMissing(k, v)
	}

	for header, ctxKey := range t.settings.ContextHeaders {
		if value := req.Context().Value(ctxKey); value != nil {
			setIfMissing(header, fmt.Sprint(value))
		}
	}

	if t.settings.UserAgent != "" {
		setIfMissing("User-Agent", t.settings.UserAgent)
	}

	return t.next.RoundTrip(reqClone)
}
