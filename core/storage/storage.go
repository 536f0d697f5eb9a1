// Package storage defines the persistence contracts consumed by the dispatch
// core, together with in-memory implementations. Durable backends live under
// infra/store.
package storage

import (
	"context"
	"errors"

	"github.com/mverdeau/geodispatch/core/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

// DeliveryStore persists delivery records.
type DeliveryStore interface {
	Save(ctx context.Context, d model.Delivery) error
	Load(ctx context.Context, id string) (model.Delivery, error)
	// List returns all deliveries, most recent first.
	List(ctx context.Context) ([]model.Delivery, error)
}

// ReportStore persists delivery reports.
type ReportStore interface {
	Save(ctx context.Context, r model.Report) error
	List(ctx context.Context) ([]model.Report, error)
}
