package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates the Prometheus instrumentation of the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	eventsRecorded  *prometheus.CounterVec
	sinkFailures    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	exportJobs      *prometheus.CounterVec
	archivedEvents  prometheus.Counter
}

// NewMetricsService registers the core collectors on a private registry.
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

	eventsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_recorded_total",
		Help: "Audit events recorded, labelled by risk level",
	}, []string{"risk_level"})

	sinkFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_sink_failures_total",
		Help: "Failed sink writes during fan-out",
	}, []string{"sink"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_query_cache_hits_total",
		Help: "Query cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_query_cache_misses_total",
		Help: "Query cache misses",
	})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_export_jobs_total",
		Help: "Export jobs by terminal status",
	}, []string{"status"})

	archivedEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_archived_total",
		Help: "Events moved to archival storage",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, eventsRecorded, sinkFailures,
		cacheHits, cacheMisses, exportJobs, archivedEvents, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		eventsRecorded:  eventsRecorded,
		sinkFailures:    sinkFailures,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		exportJobs:      exportJobs,
		archivedEvents:  archivedEvents,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveRequest records one HTTP request.
func (s *MetricsService) ObserveRequest(method, path, status string, duration time.Duration) {
	s.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, status).Inc()
}

// EventRecorded counts a persisted audit event.
func (s *MetricsService) EventRecorded(riskLevel string) {
	s.eventsRecorded.WithLabelValues(riskLevel).Inc()
}

// SinkFailure counts a failed fan-out write.
func (s *MetricsService) SinkFailure(sink string) {
	s.sinkFailures.WithLabelValues(sink).Inc()
}

// CacheHit counts a query cache hit.
func (s *MetricsService) CacheHit() { s.cacheHits.Inc() }

// CacheMiss counts a query cache miss.
func (s *MetricsService) CacheMiss() { s.cacheMisses.Inc() }

// ExportFinished counts a terminal export job.
func (s *MetricsService) ExportFinished(status string) {
	s.exportJobs.WithLabelValues(status).Inc()
}

// EventsArchived counts events moved to archival storage.
func (s *MetricsService) EventsArchived(count int) {
	s.archivedEvents.Add(float64(count))
}
