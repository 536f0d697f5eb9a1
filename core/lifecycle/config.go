package lifecycle

import "fmt"

// Config defines the geofence radii driving status transitions.
type Config struct {
	// PickupRadiusM is the geofence radius around the pickup point, in meters.
	PickupRadiusM float64 `json:"pickup_radius_m"`
	// DropoffRadiusM is the geofence radius around the drop-off point, in meters.
	DropoffRadiusM float64 `json:"dropoff_radius_m"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PickupRadiusM == 0 {
		c.PickupRadiusM = 100
	}
	if c.DropoffRadiusM == 0 {
		c.DropoffRadiusM = 50
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.PickupRadiusM <= 0 {
		return fmt.Errorf("pickup_radius_m must be positive")
	}
	if c.DropoffRadiusM <= 0 {
		return fmt.Errorf("dropoff_radius_m must be positive")
	}
	return nil
}
