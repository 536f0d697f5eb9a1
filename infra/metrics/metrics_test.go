package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/mverdeau/geodispatch/core/metrics"
	"github.com/mverdeau/geodispatch/core/model"
)

func sampleReport() model.Report {
	return model.Report{
		ID:                "r1",
		DeliveryID:        "d1",
		VehicleID:         "v1",
		ActualDuration:    78 * time.Minute,
		EstimatedDuration: time.Hour,
		Variance:          18 * time.Minute,
		DistanceKm:        12.5,
		Warning:           true,
		CreatedAt:         time.Now(),
	}
}

func TestPromSink_RecordReport(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordReport(sampleReport()))
	require.NoError(t, sink.RecordReport(sampleReport()))

	ps := sink.(*PromSink)
	require.Equal(t, 2.0, testutil.ToFloat64(ps.completed.WithLabelValues("true")))
	require.Equal(t, 0.0, testutil.ToFloat64(ps.completed.WithLabelValues("false")))
}

func TestPromSink_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	// Registering twice on the same registry reuses the existing collectors.
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordReport(sampleReport()))
}

type stubSink struct {
	calls int
	err   error
}

func (s *stubSink) RecordReport(model.Report) error {
	s.calls++
	return s.err
}

func TestMultiSink(t *testing.T) {
	ok := &stubSink{}
	bad := &stubSink{err: errors.New("boom")}
	multi := NewMultiSink(ok, bad, ok)

	err := multi.RecordReport(sampleReport())
	require.Error(t, err)
	require.Equal(t, 2, ok.calls)
	require.Equal(t, 1, bad.calls)
}

func TestInfluxSink_FallbackWhenUnreachable(t *testing.T) {
	cfg := coremetrics.Config{
		InfluxEnabled: true,
		InfluxURL:     "http://127.0.0.1:1", // nothing listens here
		InfluxToken:   "token",
		InfluxOrg:     "org",
	}
	cfg.SetDefaults()
	sink := NewInfluxSinkWithFallback(cfg)
	require.IsType(t, coremetrics.NopSink{}, sink)
}
