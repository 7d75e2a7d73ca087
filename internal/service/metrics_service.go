package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	batchItems      *prometheus.CounterVec
	advisoryCalls   *prometheus.HistogramVec
	tenantResolves  *prometheus.CounterVec
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	batchItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_items_total",
		Help: "Batch item outcomes by classification",
	}, []string{"outcome"})

	advisoryCalls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "advisory_call_duration_seconds",
		Help:    "Duration of calls to the advisory service",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	tenantResolves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_resolutions_total",
		Help: "Tenant handle resolutions by source",
	}, []string{"source"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, batchItems, advisoryCalls, tenantResolves, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		batchItems:      batchItems,
		advisoryCalls:   advisoryCalls,
		tenantResolves:  tenantResolves,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-request timing and totals.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBatchItem counts a batch item outcome: successful, failed or skipped.
func (m *MetricsService) ObserveBatchItem(outcome string) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(outcome).Inc()
}

// ObserveAdvisoryCall records the latency of one advisory round trip.
func (m *MetricsService) ObserveAdvisoryCall(d time.Duration, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "error"
	}
	m.advisoryCalls.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveTenantResolution counts a handle lookup by source: cache or open.
func (m *MetricsService) ObserveTenantResolution(source string) {
	if m == nil {
		return
	}
	m.tenantResolves.WithLabelValues(source).Inc()
}
