// Package metrics records manifest fetch outcomes for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meltwater/drone-manifest/manifest"
)

const (
	namespace = "drone_manifest"

	outcomeSuccess = "success"
)

// Metrics holds the collectors of a single plugin run.
type Metrics struct {
	registry *prometheus.Registry

	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	sizeBytes     *prometheus.GaugeVec
}

// New creates Metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Number of manifest fetches, by outcome. Failed fetches are labelled with their error kind.",
			},
			[]string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time spent fetching and decoding a manifest.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			}),
		sizeBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "size_bytes",
				Help:      "Size of the last fetched manifest object as downloaded.",
			},
			[]string{"name"}),
	}

	m.registry.MustRegister(m.fetchesTotal, m.fetchDuration, m.sizeBytes)

	return m
}

// Observe records one fetch. size is ignored for failed fetches.
func (m *Metrics) Observe(name string, took time.Duration, size int, err error) {
	m.fetchDuration.Observe(took.Seconds())

	if err != nil {
		m.fetchesTotal.WithLabelValues(manifest.KindOf(err).String()).Inc()
		return
	}

	m.fetchesTotal.WithLabelValues(outcomeSuccess).Inc()
	m.sizeBytes.WithLabelValues(name).Set(float64(size))
}

// WriteToTextfile writes all collected metrics to path in the text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics file, %w", err)
	}

	return nil
}
