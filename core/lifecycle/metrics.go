package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitions      *prometheus.CounterVec
	activeDeliveries prometheus.Gauge
	droppedUpdates   prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Gauge, prometheus.Counter) {
	tr := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Number of delivery status transitions",
		},
		[]string{"to"},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifecycle_active_deliveries",
			Help: "Number of deliveries currently in a non-terminal status",
		},
	)
	dropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_dropped_updates_total",
			Help: "Number of location updates for unknown vehicles",
		},
	)
	return tr, active, dropped
}

func init() {
	transitions, activeDeliveries, droppedUpdates = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers lifecycle metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(transitions, activeDeliveries, droppedUpdates)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	transitions, activeDeliveries, droppedUpdates = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
