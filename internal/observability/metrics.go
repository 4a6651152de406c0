package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for report builds and record intake.
type Metrics struct {
	registry      *prometheus.Registry
	buildsTotal   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	invoices      *prometheus.GaugeVec
	intakeIssues  *prometheus.CounterVec
}

// NewMetrics initialises the registry and the report metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "faturas_report_builds_total",
		Help: "Report builds by report kind and outcome.",
	}, []string{"report", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faturas_report_build_duration_seconds",
		Help:    "Report build duration by report kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})
	invoices := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "faturas_invoices",
		Help: "Invoices in the last snapshot by aging bucket.",
	}, []string{"bucket"})
	issues := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "faturas_intake_issues_total",
		Help: "Intake issues by field and severity.",
	}, []string{"field", "severity"})
	registry.MustRegister(builds, duration, invoices, issues)
	return &Metrics{
		registry:      registry,
		buildsTotal:   builds,
		buildDuration: duration,
		invoices:      invoices,
		intakeIssues:  issues,
	}
}

// ObserveBuild records one report build.
func (m *Metrics) ObserveBuild(report string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.buildsTotal.WithLabelValues(report, outcome).Inc()
	m.buildDuration.WithLabelValues(report).Observe(elapsed.Seconds())
}

// SetSnapshot publishes the invoice count per bucket of the last snapshot.
func (m *Metrics) SetSnapshot(counts map[string]int) {
	if m == nil {
		return
	}
	for bucket, n := range counts {
		m.invoices.WithLabelValues(bucket).Set(float64(n))
	}
}

// ObserveIntakeIssue counts a normalisation issue.
func (m *Metrics) ObserveIntakeIssue(field string, rejected bool) {
	if m == nil {
		return
	}
	severity := "warning"
	if rejected {
		severity = "rejected"
	}
	m.intakeIssues.WithLabelValues(field, severity).Inc()
}

// Gatherer exposes the registry for export.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
