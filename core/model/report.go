package model

import "time"

// Report is the post-delivery performance record. It is created exactly once,
// at the delivered transition, and is immutable thereafter.
type Report struct {
	ID                string        `json:"id"`
	DeliveryID        string        `json:"delivery_id"`
	VehicleID         string        `json:"vehicle_id"`
	ActualDuration    time.Duration `json:"actual_duration"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	// Variance is actual minus estimated; positive means an overrun.
	Variance   time.Duration `json:"variance"`
	DistanceKm float64       `json:"distance_km"`
	// Warning is set when the variance exceeds the configured fraction of
	// the estimate.
	Warning   bool      `json:"warning"`
	CreatedAt time.Time `json:"created_at"`
}
