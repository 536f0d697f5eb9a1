package model

import (
	"fmt"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
)

// Vehicle represents a delivery vehicle known to the pool.
type Vehicle struct {
	ID       string  `json:"id"`
	Plate    string  `json:"plate"`
	Model    string  `json:"model"`
	Capacity float64 `json:"capacity"` // maximum load the vehicle can carry

	// Available is true when the vehicle has no active delivery. It is
	// mutated only through pool reservation and release operations.
	Available bool `json:"available"`

	// Location is the last reported position. Nil until the vehicle has
	// sent its first location update.
	Location  *geo.Point        `json:"location,omitempty"`
	LocatedAt time.Time         `json:"located_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Validate checks that the vehicle configuration is sound.
// In particular Capacity must be positive.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.Capacity <= 0 {
		return fmt.Errorf("vehicle capacity must be positive")
	}
	return nil
}

// CanCarry returns true if the vehicle has capacity for the requested load.
func (v Vehicle) CanCarry(load float64) bool {
	return v.Capacity >= load
}

// Located returns true once the vehicle has reported at least one position.
func (v Vehicle) Located() bool {
	return v.Location != nil
}
