package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	matchAttempts        *prometheus.CounterVec
	reservationConflicts prometheus.Counter
	matchDistance        prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, prometheus.Histogram) {
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_match_attempts_total",
			Help: "Number of matching attempts by outcome",
		},
		[]string{"outcome"},
	)
	conflicts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_reservation_conflicts_total",
			Help: "Number of reservations lost to a concurrent match",
		},
	)
	dist := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_match_distance_meters",
			Help:    "Distance between the matched vehicle and the pickup point",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		},
	)
	return attempts, conflicts, dist
}

func init() {
	matchAttempts, reservationConflicts, matchDistance = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers matcher metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(matchAttempts, reservationConflicts, matchDistance)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	matchAttempts, reservationConflicts, matchDistance = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
