// Package metrics holds the till agent's prometheus collectors. All methods
// are safe on a nil *Metrics so collectors can be switched off by config.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "till"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

type Metrics struct {
	registry            *prometheus.Registry
	requests            *prometheus.CounterVec
	durations           *prometheus.HistogramVec
	backendRequests     *prometheus.CounterVec
	backendDurations    *prometheus.HistogramVec
	settlements         *prometheus.CounterVec
	mobileMoney         *prometheus.CounterVec
	cartPersistFailures prometheus.Counter
	openTills           prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served by the till API.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of till API requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Calls made to the POS backend by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		backendDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of POS backend calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settlement submissions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		mobileMoney: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mobile_money_attempts_total",
			Help:      "Mobile money push attempts by outcome.",
		}, []string{"outcome"}),
		cartPersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_persist_failures_total",
			Help:      "Cart snapshots that could not be written to the local store.",
		}),
		openTills: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_tills",
			Help:      "Tills currently open on this agent.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.durations,
		m.backendRequests,
		m.backendDurations,
		m.settlements,
		m.mobileMoney,
		m.cartPersistFailures,
		m.openTills,
	)
	return m
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveBackend records one backend call. status 0 means the call never got
// a response.
func (m *Metrics) ObserveBackend(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.backendDurations.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) SettlementRecorded(kind, outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) MobileMoneyAttempt(outcome string) {
	if m == nil {
		return
	}
	m.mobileMoney.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CartPersistFailed() {
	if m == nil {
		return
	}
	m.cartPersistFailures.Inc()
}

func (m *Metrics) SetOpenTills(n int) {
	if m == nil {
		return
	}
	m.openTills.Set(float64(n))
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
