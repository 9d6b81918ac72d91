// Package metrics collects per-run Prometheus metrics for dnsupd.
//
// dnsupd is a one-shot command, so nothing is served over HTTP. When a
// textfile path is configured the registry is written in the node_exporter
// textfile collector format on exit.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "dnsupd"

// Exchange kinds.
const (
	KindUpdate = "update"
	KindLookup = "lookup"
)

// Metrics holds the collectors of a single run.
type Metrics struct {
	registry *prometheus.Registry

	BuildInfo        *prometheus.GaugeVec
	ExchangesTotal   *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
	OperationsTotal  *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "build_info",
			Help:      "Build information, always 1.",
		}, []string{"version", "go_version"}),
		ExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "exchanges_total",
			Help:      "DNS exchanges by kind and result rcode.",
		}, []string{"kind", "result"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Duration of DNS exchanges.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Record operations by kind and whether they were applied.",
		}, []string{"operation", "applied"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.BuildInfo,
		m.ExchangesTotal,
		m.ExchangeDuration,
		m.OperationsTotal,
		m.LastRunTimestamp,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetBuildInfo records the running version.
func (m *Metrics) SetBuildInfo(version, goVersion string) {
	if m == nil {
		return
	}
	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ObserveExchange records one DNS exchange. A nil Metrics is a no-op.
func (m *Metrics) ObserveExchange(kind, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExchangesTotal.WithLabelValues(kind, result).Inc()
	m.ExchangeDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveOperation records one planned record operation.
func (m *Metrics) ObserveOperation(operation string, applied bool) {
	if m == nil {
		return
	}
	label := "false"
	if applied {
		label = "true"
	}
	m.OperationsTotal.WithLabelValues(operation, label).Inc()
}

// WriteTextfile stamps the run time and writes the registry to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return errors.New("metrics not initialized")
	}
	if path == "" {
		return errors.New("textfile path is empty")
	}
	m.LastRunTimestamp.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}
