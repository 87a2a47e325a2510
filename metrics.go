package httpclient_adapter

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector records connection cache and request metrics. A nil collector records nothing.
type MetricsCollector struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cachedClients prometheus.Gauge
	buildErrors   prometheus.Counter

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetricsCollector registers the adapter metrics on registerer.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registerer)

	return &MetricsCollector{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "httpclient_adapter_connection_cache_hits_total",
			Help: "Number of connection lookups served by a cached client",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "httpclient_adapter_connection_cache_misses_total",
			Help: "Number of connection lookups that built a new client",
		}),
		cachedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "httpclient_adapter_cached_clients",
			Help: "Number of clients currently held in the connection cache",
		}),
		buildErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "httpclient_adapter_client_build_errors_total",
			Help: "Number of failed client constructions",
		}),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpclient_adapter_requests_total",
				Help: "Number of requests executed by the adapter",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "httpclient_adapter_request_duration_seconds",
				Help:    "Duration of requests executed by the adapter",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

func (m *MetricsCollector) recordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *MetricsCollector) recordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *MetricsCollector) recordBuildError() {
	if m == nil {
		return
	}
	m.buildErrors.Inc()
}

func (m *MetricsCollector) setCachedClients(n int) {
	if m == nil {
		return
	}
	m.cachedClients.Set(float64(n))
}

// recordRequest records a finished request. statusCode is 0 when no response was received.
func (m *MetricsCollector) recordRequest(method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}

	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}

	m.requestsTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}
