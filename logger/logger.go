package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/JSainsburyPLC/go-logrus-wrapper/v2"
	"github.com/sirupsen/logrus"
)

// Logger is a RoundTripper that logs every request with its status, duration and response size.
// The response body is buffered so its size can be logged; callers still get a readable body.
type Logger struct {
	wrapped http.RoundTripper
}

func NewRoundTripper(wrapped http.RoundTripper) *Logger {
	return &Logger{wrapped: wrapped}
}

func (l Logger) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	request := fmt.Sprintf("%s %s", req.Method, req.URL.Redacted())

	resp, err := l.wrapped.RoundTrip(req)
	if err != nil {
		log.WithFields(logrus.Fields{
			"request":  request,
			"duration": time.Since(start).String(),
			"error":    err.Error(),
		}).Warn("request failed")
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.CtxInfof(req.Context(), "failed to close body: %v", err)
		}
	}(resp.Body)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for logging: %w", err)
	}

	resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	log.WithFields(logrus.Fields{
		"request":     request,
		"status_code": resp.StatusCode,
		"duration":    time.Since(start).String(),
		"bytes":       len(bodyBytes),
	}).Info("request completed")

	return resp, nil
}
