package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the purchase client collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	AttemptsTotal     *prometheus.CounterVec
	TransactionsTotal *prometheus.CounterVec
	InFlight          prometheus.Gauge
	SendLatency       prometheus.Histogram
	WorkerQueueDepth  prometheus.Gauge
}

// New creates the client collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inapppay_attempts_total",
				Help: "Purchase attempts by outcome",
			},
			[]string{"outcome"},
		),
		TransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inapppay_transactions_total",
				Help: "Transactions reaching a terminal state",
			},
			[]string{"state"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inapppay_transactions_in_flight",
				Help: "Transactions not yet terminal",
			},
		),
		SendLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "inapppay_send_latency_seconds",
				Help:    "Latency of a single purchase attempt",
				Buckets: prometheus.DefBuckets,
			},
		),
		WorkerQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inapppay_worker_queue_depth",
				Help: "Sends waiting for a free worker",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.AttemptsTotal, m.TransactionsTotal, m.InFlight, m.SendLatency, m.WorkerQueueDepth)
	}
	return m
}

func (m *Metrics) ObserveAttempt(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(outcome).Inc()
	m.SendLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveTerminal(state string) {
	if m == nil {
		return
	}
	m.TransactionsTotal.WithLabelValues(state).Inc()
	m.InFlight.Dec()
}

func (m *Metrics) TransactionStarted() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.WorkerQueueDepth.Set(float64(n))
}

// HTTPMetrics holds the sandbox server collectors.
type HTTPMetrics struct {
	RequestsTotal  *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// NewHTTP creates the sandbox HTTP collectors and registers them on reg.
func NewHTTP(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_requests_latency_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RequestLatency)
	}
	return m
}

// Handler serves the collectors registered on g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
