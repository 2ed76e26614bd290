package service

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
)

// MetricsService owns the Prometheus registry for HTTP, cache, database and scheduling metrics.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	dbQueryDuration *prometheus.HistogramVec

	appointmentWrites *prometheus.CounterVec
	overlapConflicts  *prometheus.CounterVec
	reminderJobs      *prometheus.CounterVec
	backgroundJobs    *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	appointmentWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_writes_total",
		Help: "Appointment write attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	overlapConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_overlap_conflicts_total",
		Help: "Rejected candidates by overlap scope",
	}, []string{"scope"})

	reminderJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_jobs_total",
		Help: "Reminder job attempts by result",
	}, []string{"result"})

	backgroundJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "background_job_attempts_total",
		Help: "Worker queue attempts by job kind and result",
	}, []string{"kind", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, dbQueryDuration,
		appointmentWrites, overlapConflicts, reminderJobs, backgroundJobs, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLookups:      cacheLookups,
		cacheLatency:      cacheLatency,
		dbQueryDuration:   dbQueryDuration,
		appointmentWrites: appointmentWrites,
		overlapConflicts:  overlapConflicts,
		reminderJobs:      reminderJobs,
		backgroundJobs:    backgroundJobs,
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

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordAppointmentWrite counts a write and, for rejected candidates, each overlap scope involved.
func (m *MetricsService) RecordAppointmentWrite(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errs, ok := asValidationErrors(err); ok {
			outcome = "rejected"
			for _, e := range errs {
				if e.IsOverlap() {
					m.overlapConflicts.WithLabelValues(string(e.Scope)).Inc()
				}
			}
		}
	}
	m.appointmentWrites.WithLabelValues(operation, outcome).Inc()
}

// RecordReminder counts a reminder job attempt.
func (m *MetricsService) RecordReminder(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reminderJobs.WithLabelValues("failed").Inc()
		return
	}
	m.reminderJobs.WithLabelValues("sent").Inc()
}

// RecordJobAttempt counts one worker queue attempt, including ones no handler saw
// (unknown kind, timeout).
func (m *MetricsService) RecordJobAttempt(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.backgroundJobs.WithLabelValues(kind, result).Inc()
}

func asValidationErrors(err error) (scheduling.ValidationErrors, bool) {
	var errs scheduling.ValidationErrors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
