// Package metrics exposes Prometheus collectors for the intake pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IntakeMetrics tracks submissions flowing through the gateway, labelled by
// variant so the three pipelines can be observed independently.
type IntakeMetrics struct {
	mu sync.Mutex

	receivedTotal   *prometheus.CounterVec
	publishedTotal  *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newIntakeCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mottak",
			Subsystem: "intake",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewIntakeMetrics creates the intake collectors against the provided
// registerer. A nil registerer falls back to the Prometheus default.
func NewIntakeMetrics(registerer prometheus.Registerer) *IntakeMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &IntakeMetrics{
		registerer:     registerer,
		receivedTotal:  newIntakeCounterVec("submissions_received_total", "Total number of submissions handed to the pipeline", []string{"variant"}),
		publishedTotal: newIntakeCounterVec("submissions_published_total", "Total number of submissions acknowledged by the broker", []string{"variant"}),
		failuresTotal:  newIntakeCounterVec("submission_failures_total", "Total number of submissions that aborted before acknowledgement", []string{"variant", "reason"}),
		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mottak",
				Subsystem: "intake",
				Name:      "pipeline_duration_seconds",
				Help:      "Time from pipeline entry to broker acknowledgement",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"variant"},
		),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *IntakeMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.receivedTotal,
		m.publishedTotal,
		m.failuresTotal,
		m.publishDuration,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			return err
		}
	}
	m.registered = true
	return nil
}

// ObserveReceived counts a submission entering the pipeline.
func (m *IntakeMetrics) ObserveReceived(variant string) {
	m.receivedTotal.WithLabelValues(variant).Inc()
}

// ObservePublished counts a broker-acknowledged submission and records the
// total pipeline duration.
func (m *IntakeMetrics) ObservePublished(variant string, elapsed time.Duration) {
	m.publishedTotal.WithLabelValues(variant).Inc()
	m.publishDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
}

// ObserveFailure counts an aborted submission.
func (m *IntakeMetrics) ObserveFailure(variant, reason string) {
	m.failuresTotal.WithLabelValues(variant, reason).Inc()
}
