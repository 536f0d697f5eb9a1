package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/mverdeau/geodispatch/core/metrics"
	"github.com/mverdeau/geodispatch/core/model"
)

// PromSink records delivery reports in Prometheus metrics.
type PromSink struct {
	completed *prometheus.CounterVec
	variance  prometheus.Histogram
	distance  prometheus.Histogram
}

// NewPromSink registers report metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_completed_total",
		Help: "Total number of completed deliveries",
	}, []string{"warning"})
	variance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_variance_minutes",
		Help:    "Actual minus estimated delivery duration in minutes",
		Buckets: []float64{-30, -10, -5, 0, 5, 10, 20, 40, 80},
	})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_distance_km",
		Help:    "Great-circle distance between pickup and drop-off",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	if err := reg.Register(completed); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			completed = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(variance); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			variance = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(distance); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			distance = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}

	return &PromSink{completed: completed, variance: variance, distance: distance}, nil
}

// RecordReport increments the delivery counters and histograms.
func (s *PromSink) RecordReport(r model.Report) error {
	s.completed.WithLabelValues(strconv.FormatBool(r.Warning)).Inc()
	s.variance.Observe(r.Variance.Minutes())
	s.distance.Observe(r.DistanceKm)
	return nil
}
