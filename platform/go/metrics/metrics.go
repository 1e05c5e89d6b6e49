package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported on /metrics. Every method is safe to
// call on a nil receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	leadSubmissions   *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	webhookDuration   prometheus.Histogram
	ownerNotices      *prometheus.CounterVec
	authOutcomes      *prometheus.CounterVec
}

// New registers the collectors on a dedicated registry using the given name prefix.
func New(prefix string) *Metrics {
	if prefix == "" {
		prefix = "leadcapture"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		leadSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_lead_submissions_total",
				Help: "Lead submissions by outcome (created, duplicate, rejected, unknown_tenant, error)",
			},
			[]string{"outcome"},
		),
		webhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_webhook_deliveries_total",
				Help: "Outbound webhook deliveries by event and result",
			},
			[]string{"event", "result"},
		),
		webhookDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_webhook_delivery_duration_seconds",
				Help:    "Duration of outbound webhook deliveries in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ownerNotices: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_owner_notifications_total",
				Help: "Owner notifications published to the notification stream by result",
			},
			[]string{"result"},
		),
		authOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_auth_outcomes_total",
				Help: "Dashboard authentication attempts by outcome or rejection reason",
			},
			[]string{"outcome"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency keyed by the chi route pattern
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// LeadSubmission counts one pipeline outcome.
func (m *Metrics) LeadSubmission(outcome string) {
	if m == nil {
		return
	}
	m.leadSubmissions.WithLabelValues(outcome).Inc()
}

// WebhookDelivery counts one delivery attempt and records its duration.
func (m *Metrics) WebhookDelivery(event, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(event, result).Inc()
	m.webhookDuration.Observe(duration.Seconds())
}

// OwnerNotification counts one publish to the owner notification stream.
func (m *Metrics) OwnerNotification(result string) {
	if m == nil {
		return
	}
	m.ownerNotices.WithLabelValues(result).Inc()
}

// AuthOutcome counts one dashboard authentication result.
func (m *Metrics) AuthOutcome(outcome string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(outcome).Inc()
}
