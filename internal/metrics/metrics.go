// Package metrics provides Prometheus metrics collection for the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for outcome-style metrics.
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeFallback = "fallback"
)

// Capture kinds.
const (
	CaptureKindPartial = "partial"
	CaptureKindFinal   = "final"
)

// Trigger sources.
const (
	TriggerTime   = "time"
	TriggerScroll = "scroll"
	TriggerManual = "manual"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Conversation metrics
	SessionsActive   prometheus.Gauge
	SessionsCreated  prometheus.Counter
	SessionsEvicted  prometheus.Counter
	TurnsTotal       *prometheus.CounterVec
	TurnsRejected    prometheus.Counter
	PhaseTransitions *prometheus.CounterVec
	PhaseHolds       prometheus.Counter

	// Engagement metrics
	WidgetOpensTotal *prometheus.CounterVec

	// Gateway metrics
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration prometheus.Histogram

	// Capture metrics
	CapturesTotal        *prometheus.CounterVec
	CaptureWriteFailures prometheus.Counter
	AutosaveChecksTotal  prometheus.Counter

	registry prometheus.Gatherer
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	m := newWithRegisterer(prometheus.DefaultRegisterer)
	m.registry = prometheus.DefaultGatherer
	return m
}

// NewWithRegistry creates metrics on a custom registry (for testing).
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := newWithRegisterer(reg)
	m.registry = reg
	return m
}

func newWithRegisterer(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadchat_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status code",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadchat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadchat_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadchat_sessions_active",
				Help: "Number of resident conversation sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadchat_sessions_created_total",
				Help: "Total number of conversation sessions created",
			},
		),
		SessionsEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadchat_sessions_evicted_total",
				Help: "Total number of idle sessions evicted",
			},
		),
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadchat_turns_total",
				Help: "Total number of dialogue turns by outcome",
			},
			[]string{"outcome"}, // "success", "failure", "fallback"
		),
		TurnsRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadchat_turns_rejected_total",
				Help: "Turns rejected because another turn was in flight",
			},
		),
		PhaseTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadchat_phase_transitions_total",
				Help: "Conversation phase transitions by target phase",
			},
			[]string{"phase"},
		),
		PhaseHolds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadchat_phase_holds_total",
				Help: "Turns that held their phase due to an invalid gateway phase",
			},
		),

		WidgetOpensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadchat_widget_opens_total",
				Help: "Widget opens by trigger source",
			},
			[]string{"trigger"}, // "time", "scroll", "manual"
		),

		GatewayCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadchat_gateway_calls_total",
				Help: "Dialogue gateway calls by outcome",
			},
			[]string{"outcome"},
		),
		GatewayCallDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadchat_gateway_call_duration_seconds",
				Help:    "Dialogue gateway call duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		CapturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadchat_captures_total",
				Help: "Lead captures persisted, by kind and qualification",
			},
			[]string{"kind", "qualified"}, // kind: "partial"/"final"
		),
		CaptureWriteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadchat_capture_write_failures_total",
				Help: "Lead capture writes that failed (not retried)",
			},
		),
		AutosaveChecksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadchat_autosave_checks_total",
				Help: "Inactivity check ticks executed",
			},
		),
	}
}

// RecordTurn records a completed dialogue turn.
func (m *Metrics) RecordTurn(outcome string) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
}

// RecordGatewayCall records a gateway call outcome and duration.
func (m *Metrics) RecordGatewayCall(success bool, duration time.Duration) {
	outcome := outcomeSuccess
	if !success {
		outcome = outcomeFailure
	}
	m.GatewayCallsTotal.WithLabelValues(outcome).Inc()
	m.GatewayCallDuration.Observe(duration.Seconds())
}

// RecordCapture records a persisted lead capture.
func (m *Metrics) RecordCapture(kind string, qualified bool) {
	m.CapturesTotal.WithLabelValues(kind, strconv.FormatBool(qualified)).Inc()
}

// RecordWidgetOpen records a widget open by trigger source.
func (m *Metrics) RecordWidgetOpen(trigger string) {
	m.WidgetOpensTotal.WithLabelValues(trigger).Inc()
}

// RecordPhaseTransition records a successful phase transition.
func (m *Metrics) RecordPhaseTransition(phase string) {
	m.PhaseTransitions.WithLabelValues(phase).Inc()
}

// Handler returns the HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry != nil {
		return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// HTTPMiddleware instruments HTTP handlers with request metrics.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.HTTPRequestsTotal.WithLabelValues(
			r.Method, r.URL.Path, strconv.Itoa(wrapped.status),
		).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
