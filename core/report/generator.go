// Package report produces post-delivery performance records comparing
// estimated and actual delivery duration.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mverdeau/geodispatch/core/logger"
	"github.com/mverdeau/geodispatch/core/metrics"
	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/storage"
)

// Config defines report settings.
type Config struct {
	// WarningVarianceFraction flags a report when the overrun exceeds this
	// fraction of the estimated duration.
	WarningVarianceFraction float64 `json:"warning_variance_fraction"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.WarningVarianceFraction == 0 {
		c.WarningVarianceFraction = 0.2
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.WarningVarianceFraction <= 0 {
		return fmt.Errorf("warning_variance_fraction must be positive")
	}
	return nil
}

// Generator computes variance records and writes them to the report store.
// It never mutates the delivery it reports on.
type Generator struct {
	store storage.ReportStore
	sink  metrics.Sink
	cfg   Config
	log   logger.Logger

	now   func() time.Time
	newID func() string
}

// NewGenerator creates a Generator. The metrics sink is optional.
func NewGenerator(store storage.ReportStore, sink metrics.Sink, cfg Config, log logger.Logger) (*Generator, error) {
	if store == nil || log == nil {
		return nil, fmt.Errorf("report: nil parameter provided to NewGenerator")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Generator{store: store, sink: sink, cfg: cfg, log: log, now: time.Now, newID: uuid.NewString}, nil
}

// Generate builds the report for a delivered delivery and persists it.
func (g *Generator) Generate(ctx context.Context, d model.Delivery, actual time.Duration, distanceKm float64) (model.Report, error) {
	variance := actual - d.EstimatedDuration
	r := model.Report{
		ID:                g.newID(),
		DeliveryID:        d.ID,
		VehicleID:         d.VehicleID,
		ActualDuration:    actual,
		EstimatedDuration: d.EstimatedDuration,
		Variance:          variance,
		DistanceKm:        distanceKm,
		Warning:           float64(variance) > g.cfg.WarningVarianceFraction*float64(d.EstimatedDuration),
		CreatedAt:         g.now(),
	}
	if err := g.store.Save(ctx, r); err != nil {
		return model.Report{}, fmt.Errorf("save report: %w", err)
	}
	if err := g.sink.RecordReport(r); err != nil {
		g.log.Errorf("report metrics error: %v", err)
	}
	if r.Warning {
		g.log.Warnf("delivery %s overran its estimate by %s", d.ID, variance)
	}
	return r, nil
}
