package config

import (
	"fmt"

	"github.com/mverdeau/geodispatch/core/model"
)

// VehicleConfig declares one fleet vehicle. Positions are not configured
// here: they arrive over the location stream.
type VehicleConfig struct {
	ID       string  `json:"id"`
	Plate    string  `json:"plate"`
	Model    string  `json:"model"`
	Capacity float64 `json:"capacity"`
}

// FleetConfig declares the vehicles registered at startup.
type FleetConfig struct {
	Vehicles []VehicleConfig `json:"vehicles"`
}

// Validate checks that every vehicle has an id and a positive capacity.
func (c FleetConfig) Validate() error {
	seen := make(map[string]bool, len(c.Vehicles))
	for _, v := range c.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("fleet vehicle without id")
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate fleet vehicle %s", v.ID)
		}
		seen[v.ID] = true
		if v.Capacity <= 0 {
			return fmt.Errorf("fleet vehicle %s: capacity must be positive", v.ID)
		}
	}
	return nil
}

// Models converts the declarations into domain vehicles.
func (c FleetConfig) Models() []model.Vehicle {
	out := make([]model.Vehicle, 0, len(c.Vehicles))
	for _, v := range c.Vehicles {
		out = append(out, model.Vehicle{
			ID:        v.ID,
			Plate:     v.Plate,
			Model:     v.Model,
			Capacity:  v.Capacity,
			Available: true,
		})
	}
	return out
}
