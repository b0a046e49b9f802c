package fhirstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for repository operations. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the repository metrics. A nil registerer
// uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhirstore_operations_total",
				Help: "Total number of repository operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fhirstore_operation_duration_seconds",
				Help:    "Duration of repository operations in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) record(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsConflict(err):
		return "conflict"
	case IsNotFound(err):
		return "not_found"
	case IsDeleted(err):
		return "deleted"
	case IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
