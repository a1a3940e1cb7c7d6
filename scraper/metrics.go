package scraper

import (
	"time"

	"github.com/aluiziolira/go-scrape-logos/gate"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric phases.
const (
	PhaseProbe    = "probe"
	PhaseDownload = "download"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	DiscoveredTotal prometheus.Counter
	SavedBytesTotal prometheus.Counter
	OutcomesTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency by phase.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	discovered := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_discovered_urls_total",
			Help: "Total number of distinct asset URLs discovered.",
		},
	)
	savedBytes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_saved_bytes_total",
			Help: "Total number of asset bytes written to disk.",
		},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_outcomes_total",
			Help: "Per-unit terminal outcomes (found, absent, saved, failed).",
		},
		[]string{"phase", "outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by phase and type.",
		},
		[]string{"phase", "error_type"},
	)

	registry.MustRegister(requests, requestDuration, discovered, savedBytes, outcomes, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		DiscoveredTotal: discovered,
		SavedBytesTotal: savedBytes,
		OutcomesTotal:   outcomes,
		ErrorsTotal:     errorsTotal,
	}
}

// RegisterGate exposes the in-flight count of g as a gauge.
func (m *Metrics) RegisterGate(g *gate.Gate) error {
	if m == nil || g == nil {
		return nil
	}
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "scraper_gate_in_flight",
			Help:        "Operations currently holding a concurrency gate slot.",
			ConstLabels: prometheus.Labels{"gate": g.Name()},
		},
		func() float64 { return float64(g.InFlight()) },
	)
	return m.Registry.Register(gauge)
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncDiscovered increments the discovered URL counter.
func (m *Metrics) IncDiscovered() {
	if m == nil {
		return
	}
	m.DiscoveredTotal.Inc()
}

// AddSavedBytes adds n to the saved bytes counter.
func (m *Metrics) AddSavedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SavedBytesTotal.Add(float64(n))
}

// IncOutcome increments the outcome counter.
func (m *Metrics) IncOutcome(phase, outcome string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(phase, outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(phase, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(phase, errorType).Inc()
}
