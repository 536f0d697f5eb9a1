// Package metrics defines the sink contract used to export per-delivery
// records to observability backends.
package metrics

import "github.com/mverdeau/geodispatch/core/model"

// Sink records completed-delivery reports for observability purposes.
type Sink interface {
	RecordReport(r model.Report) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordReport(model.Report) error { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
	if c.InfluxBucket == "" {
		c.InfluxBucket = "geodispatch"
	}
}
