package httpclient_adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollector_ConnectionCache(t *testing.T) {
	registry := prometheus.NewRegistry()

	adapter, err := New(WithMetrics(registry), WithoutNewRelic())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	env := testEnv()
	for range 3 {
		if _, err := adapter.Connection(env); err != nil {
			t.Fatalf("failed to get connection: %v", err)
		}
	}

	env.Request.Timeout = 5 * time.Second
	if _, err := adapter.Connection(env); err != nil {
		t.Fatalf("failed to get connection: %v", err)
	}

	env.SSL.ClientCertFile = "/does/not/exist.pem"
	if _, err := adapter.Connection(env); err == nil {
		t.Fatalf("expected build error")
	}

	metrics := adapter.metrics

	if hits := testutil.ToFloat64(metrics.cacheHits); hits != 2 {
		t.Errorf("expected 2 cache hits, got %v", hits)
	}

	if misses := testutil.ToFloat64(metrics.cacheMisses); misses != 3 {
		t.Errorf("expected 3 cache misses, got %v", misses)
	}

	if errs := testutil.ToFloat64(metrics.buildErrors); errs != 1 {
		t.Errorf("expected 1 build error, got %v", errs)
	}

	if cached := testutil.ToFloat64(metrics.cachedClients); cached != 2 {
		t.Errorf("expected 2 cached clients, got %v", cached)
	}

	adapter.Close()

	if cached := testutil.ToFloat64(metrics.cachedClients); cached != 0 {
		t.Errorf("expected 0 cached clients after Close, got %v", cached)
	}
}

func TestMetricsCollector_Requests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	registry := prometheus.NewRegistry()

	adapter, err := New(WithMetrics(registry), WithoutNewRelic())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	for _, method := range []string{http.MethodGet, http.MethodGet, http.MethodDelete} {
		if _, err := adapter.Call(context.Background(), newEnv(t, method, server.URL)); err != nil {
			t.Fatalf("%s request failed: %v", method, err)
		}
	}

	server.Close()

	if _, err := adapter.Call(context.Background(), newEnv(t, http.MethodGet, server.URL)); err == nil {
		t.Fatalf("expected request against a closed server to fail")
	}

	metrics := adapter.metrics

	tests := []struct {
		method string
		status string
		want   float64
	}{
		{method: http.MethodGet, status: "200", want: 2},
		{method: http.MethodDelete, status: "404", want: 1},
		{method: http.MethodGet, status: "error", want: 1},
	}

	for _, tt := range tests {
		if got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues(tt.method, tt.status)); got != tt.want {
			t.Errorf("requests{method=%s,status_code=%s}: expected %v, got %v", tt.method, tt.status, tt.want, got)
		}
	}

	if count := testutil.CollectAndCount(metrics.requestDuration); count != 2 {
		t.Errorf("expected duration series for 2 methods, got %d", count)
	}
}

func TestMetricsCollector_NilIsNoop(t *testing.T) {
	var metrics *MetricsCollector

	metrics.recordCacheHit()
	metrics.recordCacheMiss()
	metrics.recordBuildError()
	metrics.setCachedClients(3)
	metrics.recordRequest(http.MethodGet, http.StatusOK, time.Second)
}

func TestNewMetricsCollector_RegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetricsCollector(registry)
	metrics.recordRequest(http.MethodGet, http.StatusOK, time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}

	for _, name := range []string{
		"httpclient_adapter_connection_cache_hits_total",
		"httpclient_adapter_connection_cache_misses_total",
		"httpclient_adapter_cached_clients",
		"httpclient_adapter_client_build_errors_total",
		"httpclient_adapter_requests_total",
		"httpclient_adapter_request_duration_seconds",
	} {
		if !names[name] {
			t.Errorf("expected metric %q to be registered", name)
		}
	}
}
