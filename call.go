package httpclient_adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/JSainsburyPLC/go-logrus-wrapper/v2"
)

// Response is the result of Adapter.Call. The body is fully read and the connection released.
type Response struct {
	Status       int
	ReasonPhrase string
	Headers      http.Header
	Body         []byte
	URL          *url.URL
}

// Call executes the request described by env on the Client returned by Connection.
//
// Any method is accepted, including TRACE and CONNECT, and a body is sent for every method that has
// one, GET included. Gzip responses are decompressed transparently unless disabled in
// PoolSettings. When env.Request.Boundary is set and the request has a body but no Content-Type, a
// multipart/form-data Content-Type with that boundary is added.
//
// Errors while building the Client are returned unchanged. Errors while executing the request are
// classified as ErrTimeout, ErrSSL or ErrConnectionFailed where possible.
func (a *Adapter) Call(ctx context.Context, env *Env) (*Response, error) {
	c, err := a.Connection(env)
	if err != nil {
		return nil, err
	}

	req, err := newHTTPRequest(ctx, env)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := c.Do(req)
	if err != nil {
		a.metrics.recordRequest(req.Method, 0, time.Since(start))
		return nil, classifyError(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.CtxInfof(ctx, "failed to close body: %v", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	a.metrics.recordRequest(req.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, classifyError(fmt.Errorf("failed to read response body: %w", err))
	}

	return &Response{
		Status:       resp.StatusCode,
		ReasonPhrase: reasonPhrase(resp),
		Headers:      resp.Header,
		Body:         body,
		URL:          resp.Request.URL,
	}, nil
}

func newHTTPRequest(ctx context.Context, env *Env) (*http.Request, error) {
	if env.URL == nil {
		return nil, errors.New("env url must not be nil")
	}

	method := env.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(env.Body) > 0 {
		body = bytes.NewReader(env.Body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), env.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, values := range env.RequestHeaders {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}

	if env.Request.Boundary != "" && body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "multipart/form-data; boundary="+env.Request.Boundary)
	}

	return req, nil
}

// reasonPhrase strips the status code from the status line, "200 OK" becomes "OK".
func reasonPhrase(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
