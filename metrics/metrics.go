// ABOUTME: Prometheus instruments for contract writes and number allocation
// ABOUTME: A nil *Metrics is valid and records nothing
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contract book.
type Metrics struct {
	// Successful writes by operation and resulting status
	Saves *prometheus.CounterVec

	// Rejected writes by operation and failure kind
	Rejections *prometheus.CounterVec

	// Contract numbers handed out
	Allocations prometheus.Counter

	// Time spent in the store's validate-then-commit unit
	SaveLatency prometheus.Histogram
}

// New registers every instrument with reg. Pass prometheus.DefaultRegisterer
// for the process-wide registry or a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grainbroker_contract_saves_total",
			Help: "Successful contract writes by operation and status",
		}, []string{"op", "status"}),

		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grainbroker_contract_rejections_total",
			Help: "Rejected contract writes by operation and failure kind",
		}, []string{"op", "kind"}),

		Allocations: f.NewCounter(prometheus.CounterOpts{
			Name: "grainbroker_contract_numbers_allocated_total",
			Help: "Contract numbers minted from the sequence allocator",
		}),

		SaveLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "grainbroker_contract_save_duration_seconds",
			Help:    "Duration of contract writes including validation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveSave records a successful write.
func (m *Metrics) ObserveSave(op, status string, d time.Duration) {
	if m != nil {
		m.Saves.WithLabelValues(op, status).Inc()
		m.SaveLatency.Observe(d.Seconds())
	}
}

// IncrementRejection records a failed write.
func (m *Metrics) IncrementRejection(op, kind string) {
	if m != nil {
		m.Rejections.WithLabelValues(op, kind).Inc()
	}
}

// IncrementAllocation records a minted contract number.
func (m *Metrics) IncrementAllocation() {
	if m != nil {
		m.Allocations.Inc()
	}
}
