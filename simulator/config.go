package simulator

import "github.com/mverdeau/geodispatch/core/geo"

// Config holds parameters for the fleet simulator.
type Config struct {
	// Vehicles is the number of simulated vehicles.
	Vehicles int `json:"vehicles"`
	// IntervalMS is the delay between position reports.
	IntervalMS int `json:"interval_ms"`
	// SpeedKMH is the travel speed of every vehicle.
	SpeedKMH float64 `json:"speed_kmh"`
	// Center and RadiusKm bound the area the fleet roams in.
	Center   geo.Point `json:"center"`
	RadiusKm float64   `json:"radius_km"`
	// Seed fixes the random walk for reproducible runs. Zero seeds from time.
	Seed int64 `json:"seed"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Vehicles == 0 {
		c.Vehicles = 5
	}
	if c.IntervalMS == 0 {
		c.IntervalMS = 1000
	}
	if c.SpeedKMH == 0 {
		c.SpeedKMH = 40
	}
	if c.RadiusKm == 0 {
		c.RadiusKm = 10
	}
}
