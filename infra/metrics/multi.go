package metrics

import (
	"errors"

	coremetrics "github.com/mverdeau/geodispatch/core/metrics"
	"github.com/mverdeau/geodispatch/core/model"
)

// MultiSink fans records out to several sinks, joining their errors.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink creates a sink that records on every given sink.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordReport implements coremetrics.Sink.
func (m *MultiSink) RecordReport(r model.Report) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordReport(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
